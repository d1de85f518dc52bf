package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const defaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia serves encyclopedic lookups ("who is", "tell me about") through
// the MediaWiki extract API.
type Wikipedia struct {
	client    *http.Client
	apiURL    string
	sentences int
	logger    *zap.Logger
}

type WikipediaConfig struct {
	APIURL    string
	Sentences int
	Timeout   time.Duration
}

func NewWikipedia(cfg WikipediaConfig, logger *zap.Logger) *Wikipedia {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultWikipediaURL
	}
	if cfg.Sentences <= 0 {
		cfg.Sentences = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Wikipedia{
		client:    &http.Client{Timeout: cfg.Timeout},
		apiURL:    cfg.APIURL,
		sentences: cfg.Sentences,
		logger:    logger,
	}
}

var lookupPrefixes = []string{
	"who is ", "what is ", "tell me about ", "information about ", "define ", "explain ",
}

func (w *Wikipedia) Execute(ctx context.Context, command string) (string, error) {
	term := ExtractSearchTerm(command)
	if term == "" {
		return "What would you like to know about?", nil
	}

	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"prop":            {"extracts"},
		"exsentences":     {fmt.Sprint(w.sentences)},
		"explaintext":     {"1"},
		"redirects":       {"1"},
		"titles":          {term},
		"formatversion":   {"2"},
		"exsectionformat": {"plain"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wikipedia response: %w", err)
	}

	page := gjson.GetBytes(body, "query.pages.0")
	if !page.Exists() || page.Get("missing").Bool() {
		return fmt.Sprintf("I couldn't find anything about %s.", term), nil
	}
	extract := strings.TrimSpace(page.Get("extract").String())
	if extract == "" {
		return fmt.Sprintf("I couldn't find anything about %s.", term), nil
	}
	return extract, nil
}

// ExtractSearchTerm strips the question prefix and trailing punctuation.
func ExtractSearchTerm(command string) string {
	q := strings.TrimSpace(command)
	lower := strings.ToLower(q)
	for _, p := range lookupPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.Trim(q[len(p):], "?., ")
		}
	}
	return strings.Trim(q, "?., ")
}
