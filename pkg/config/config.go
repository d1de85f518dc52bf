package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Assistant AssistantConfig `mapstructure:"assistant"`
	Router    RouterConfig    `mapstructure:"router"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Desktop   DesktopConfig   `mapstructure:"desktop"`
	Email     EmailConfig     `mapstructure:"email"`
}

type AssistantConfig struct {
	Name        string            `mapstructure:"name"`
	FastReplies map[string]string `mapstructure:"fast_replies"`
}

type RouterConfig struct {
	MaxContextMessages    int `mapstructure:"max_context_messages"`
	HandlerTimeoutSeconds int `mapstructure:"handler_timeout_seconds"`
}

type ScheduleConfig struct {
	PendingTTLMinutes int `mapstructure:"pending_ttl_minutes"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

type WeatherConfig struct {
	GeocodingURL    string `mapstructure:"geocoding_url"`
	ForecastURL     string `mapstructure:"forecast_url"`
	DefaultLocation string `mapstructure:"default_location"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

type WikipediaConfig struct {
	APIURL         string `mapstructure:"api_url"`
	Sentences      int    `mapstructure:"sentences"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type DesktopConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	AllowedApps []string `mapstructure:"allowed_apps"`
	BlockedApps []string `mapstructure:"blocked_apps"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MailboxPath string `mapstructure:"mailbox_path"`
	OutboxPath  string `mapstructure:"outbox_path"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

// LoadConfig reads the config file at path (optional; defaults apply when the
// file is absent and path is empty) and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("assistant.name", "Nova")
	v.SetDefault("assistant.fast_replies", defaultFastReplies())
	v.SetDefault("router.max_context_messages", 10)
	v.SetDefault("router.handler_timeout_seconds", 15)
	v.SetDefault("schedule.pending_ttl_minutes", 5)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("weather.default_location", "")
	v.SetDefault("weather.timeout_seconds", 10)
	v.SetDefault("wikipedia.sentences", 3)
	v.SetDefault("wikipedia.timeout_seconds", 10)
	v.SetDefault("desktop.enabled", false)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.mailbox_path", "mailbox.json")
	v.SetDefault("email.outbox_path", "outbox.json")

	// Enable environment variable support
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine; defaults and env cover it.
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		dbConfig.UseInMemory = false
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
		config.Telegram.Enabled = true
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

// defaultFastReplies is the built-in canned-phrase map; config files can
// replace it wholesale under assistant.fast_replies.
func defaultFastReplies() map[string]string {
	return map[string]string{
		"hi":           "Hello! How can I help you today?",
		"hello":        "Hello! How can I help you today?",
		"hey":          "Hey there! What can I do for you?",
		"thanks":       "You're welcome!",
		"thank you":    "You're welcome!",
		"how are you":  "I'm doing well, thank you! How can I help?",
		"good morning": "Good morning! What can I do for you?",
		"good night":   "Good night! Sleep well.",
	}
}
