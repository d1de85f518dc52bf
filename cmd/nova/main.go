package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novakit/nova/internal/cli"
	"github.com/novakit/nova/internal/email"
	"github.com/novakit/nova/internal/handler"
	"github.com/novakit/nova/internal/handlers"
	"github.com/novakit/nova/internal/intent"
	"github.com/novakit/nova/internal/llm"
	"github.com/novakit/nova/internal/notify"
	"github.com/novakit/nova/internal/router"
	"github.com/novakit/nova/internal/schedule"
	"github.com/novakit/nova/internal/storage"
	"github.com/novakit/nova/pkg/config"
)

func main() {
	var (
		configPath string
		sessionID  string
		ask        string
		debug      bool
	)

	root := &cobra.Command{
		Use:   "nova",
		Short: "Nova is a rule-routed personal assistant",
		Long: "Nova routes each utterance through a keyword intent classifier and a set\n" +
			"of action handlers: reminders, weather, lookups, desktop control, email,\n" +
			"and free conversation.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, sessionID, ask, debug)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	root.Flags().StringVarP(&sessionID, "session", "s", "", "session id to resume (default: a new session)")
	root.Flags().StringVar(&ask, "ask", "", "answer a single utterance and exit")
	root.Flags().BoolVar(&debug, "debug", false, "verbose logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, sessionID, ask string, debug bool) error {
	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var gen llm.Generator
	if cfg.OpenAI.APIKey != "" {
		gen = llm.NewClient(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	desktop := handlers.NewDesktop(handlers.ExecRunner{}, handlers.DesktopConfig{
		Enabled:     cfg.Desktop.Enabled,
		AllowedApps: cfg.Desktop.AllowedApps,
		BlockedApps: cfg.Desktop.BlockedApps,
	}, logger)

	worker := schedule.NewWorker(store, notifier, desktop, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("starting schedule worker: %w", err)
	}
	defer func() {
		if err := worker.Stop(5 * time.Second); err != nil {
			logger.Warn("Schedule worker did not stop cleanly", zap.Error(err))
		}
	}()

	rt := router.New(
		intent.Default(),
		newHandlers(cfg, gen, desktop, logger),
		worker,
		store,
		newConversationFactory(cfg, gen, logger),
		logger,
		router.Options{
			FastReplies:    cfg.Assistant.FastReplies,
			MaxContext:     cfg.Router.MaxContextMessages,
			PendingTTL:     time.Duration(cfg.Schedule.PendingTTLMinutes) * time.Minute,
			HandlerTimeout: time.Duration(cfg.Router.HandlerTimeoutSeconds) * time.Second,
		},
	)

	if ask != "" {
		return answerOnce(ctx, rt, sessionID, ask)
	}
	return cli.New(rt, sessionID, cfg.Assistant.Name, logger).Run(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	// The REPL owns stdout; keep production logs on stderr only for warnings
	// and above so they don't interleave with replies.
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func newStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStore(), nil
	}
	logger.Info("Using PostgreSQL storage")
	store, err := storage.NewPostgresStore(storage.DatabaseConfig{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.DBName,
		SSLMode:     cfg.Database.SSLMode,
		UseInMemory: cfg.Database.UseInMemory,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	console := notify.NewConsole(os.Stdout, cfg.Assistant.Name)
	if !cfg.Telegram.Enabled {
		return console, nil
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
	if err != nil {
		return nil, err
	}
	return notify.NewFanout(logger, console, tg), nil
}

// newHandlers builds the dispatch table. Families without a configured
// backend are registered as unavailable so the user gets a pointed answer
// instead of a generic chat reply.
func newHandlers(cfg *config.Config, gen llm.Generator, desktop *handlers.Desktop, logger *zap.Logger) map[intent.Intent]handler.Handler {
	table := map[intent.Intent]handler.Handler{
		intent.Weather: handlers.NewWeather(handlers.WeatherConfig{
			GeocodingURL:    cfg.Weather.GeocodingURL,
			ForecastURL:     cfg.Weather.ForecastURL,
			DefaultLocation: cfg.Weather.DefaultLocation,
			Timeout:         time.Duration(cfg.Weather.TimeoutSeconds) * time.Second,
		}, logger),
		intent.Encyclopedia: handlers.NewWikipedia(handlers.WikipediaConfig{
			APIURL:    cfg.Wikipedia.APIURL,
			Sentences: cfg.Wikipedia.Sentences,
			Timeout:   time.Duration(cfg.Wikipedia.TimeoutSeconds) * time.Second,
		}, logger),
		intent.Desktop:         desktop,
		intent.DesktopAdvanced: handler.Unavailable{Feature: "Advanced desktop automation", Hint: "Window and tab control need a desktop automation backend."},
		intent.Media:           handler.Unavailable{Feature: "Media playback", Hint: "Connect a media player to play music or videos."},
		intent.Communication:   handler.Unavailable{Feature: "Messaging", Hint: "Connect a messaging account to send texts or make calls."},
		intent.Translation:     handler.Unavailable{Feature: "Translation"},
		intent.Productivity:    handler.Unavailable{Feature: "Notes and timers"},
		intent.Documents:       handler.Unavailable{Feature: "Document analysis"},
		intent.ScreenTime:      handler.Unavailable{Feature: "Screen time reports"},
	}

	if gen != nil {
		table[intent.Conversation] = handlers.NewConversation(gen)
	} else {
		table[intent.Conversation] = handler.Func(func(ctx context.Context, command string) (string, error) {
			return "I need a language model configured to chat. Set OPENAI_API_KEY, or ask me about the weather, reminders, or a lookup.", nil
		})
	}
	return table
}

// newConversationFactory wires the email flow. Without a mailbox (or a model
// to draft with) the session gets an inert stand-in that reports the feature
// as not set up.
func newConversationFactory(cfg *config.Config, gen llm.Generator, logger *zap.Logger) func(sessionID string) router.Conversation {
	if !cfg.Email.Enabled || gen == nil {
		return func(string) router.Conversation { return email.Unconfigured{} }
	}
	box := email.NewLocalbox(cfg.Email.MailboxPath, cfg.Email.OutboxPath)
	return func(string) router.Conversation {
		return email.NewAssistant(box, gen, logger)
	}
}

func answerOnce(ctx context.Context, rt *router.Router, sessionID, utterance string) error {
	reply := rt.Handle(ctx, sessionID, utterance)
	if reply.Chunks != nil {
		for chunk := range reply.Chunks {
			fmt.Print(chunk)
		}
		fmt.Println()
		return nil
	}
	fmt.Println(reply.Text)
	return nil
}
