package intent

import "strings"

// Intent selects which handler family processes an utterance.
type Intent string

const (
	Schedule        Intent = "schedule"
	Media           Intent = "media"
	Email           Intent = "email"
	Communication   Intent = "communication"
	Translation     Intent = "translation"
	Productivity    Intent = "productivity"
	Documents       Intent = "documents"
	ScreenTime      Intent = "screen_time"
	DesktopAdvanced Intent = "desktop_advanced"
	Desktop         Intent = "desktop"
	Weather         Intent = "weather"
	Encyclopedia    Intent = "encyclopedia"
	Conversation    Intent = "general-conversation"
)

// Rule is one ordered predicate. The first rule whose Match returns true
// decides the intent; later rules are never consulted. Reordering rules
// changes routing behavior, so the table in Default() is the contract.
type Rule struct {
	Name   string
	Intent Intent
	Match  func(q string) bool
}

// Classifier evaluates an ordered rule list over a normalized utterance.
type Classifier struct {
	rules    []Rule
	fallback Intent
}

func New(rules []Rule, fallback Intent) *Classifier {
	return &Classifier{rules: rules, fallback: fallback}
}

// Classify returns the first matching rule's intent. It is pure and total:
// an utterance no rule claims resolves to the fallback intent.
func (c *Classifier) Classify(text string) Intent {
	q := strings.ToLower(strings.TrimSpace(text))
	for _, r := range c.rules {
		if r.Match(q) {
			return r.Intent
		}
	}
	return c.fallback
}

// Rules exposes the rule table for diagnostics.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

func containsAny(q string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

func hasPrefixAny(q string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

var (
	launchVerbs = []string{"open", "launch", "start"}

	mediaKeywords = []string{
		"play music", "play song", "play track", "play artist",
		"search music", "search song", "find song", "find music",
		"pause music", "pause song", "resume music", "continue music",
		"next song", "previous song", "skip song", "skip track",
		"volume up", "volume down", "set volume", "increase volume", "decrease volume",
		"add to queue", "clear queue", "shuffle queue", "show queue", "view queue",
		"create playlist", "show playlists", "my playlists", "list playlists",
		"recommend music", "music suggestions", "suggest songs",
		"happy music", "sad music", "workout music", "chill music", "focus music",
		"energetic music", "relaxed music", "party music",
		"what's playing", "current song", "music status", "now playing",
	}

	// "play the news" stays media; "play a movie" does not.
	mediaPlayExclusions = []string{"video", "movie", "game"}

	emailKeywords = []string{
		"check email", "read email", "new email", "unread email", "any email",
		"get email", "show email",
		"reply", "reply to", "send reply", "answer email", "respond to",
		"compose email", "send email to", "write email", "how many email",
	}

	communicationKeywords = []string{
		"priority email", "urgent email", "important email",
		"summarize email", "email summary",
		"action item", "extract action",
		"send telegram", "telegram message",
		"send sms", "text message",
		"notification", "notify me", "send notification",
		"mark as read", "mark email",
		"auto reply", "automatic reply",
	}

	translationKeywords = []string{
		"translate", "translation", "what language is", "detect language",
		"say in", "how do you say", "spanish for", "french for", "german for",
	}

	productivityKeywords = []string{
		"predict next task", "what should i do next", "suggest task",
		"optimize schedule", "optimize my schedule", "improve schedule",
	}

	documentKeywords = []string{
		"organize documents", "organize files by date", "organize files by type",
		"process csv", "analyze csv", "analyse csv",
		"generate report", "create report",
	}

	screenTimeKeywords = []string{
		"screen time", "track screen time", "how long have i worked",
		"daily report", "weekly report", "take a break", "break suggestion",
	}

	advancedDesktopKeywords = []string{
		"screenshot", "capture screen", "record screen", "start recording",
		"organize downloads", "clean downloads", "list windows", "show windows",
		"focus window", "switch to window", "run macro", "execute macro",
		"create folder", "make directory", "delete file", "move file",
	}

	desktopPrefixes = []string{"open ", "launch ", "start ", "close ", "run "}

	weatherKeywords = []string{
		"weather", "temperature", "forecast", "rain", "sunny", "climate", "hot", "cold",
	}

	mathOperators   = []string{"+", "*", "/", "calculate", "compute", "math"}
	mathNumberWords = []string{"plus", "minus", "times", "divided", "multiply", "add", "subtract"}

	encyclopediaPrefixes = []string{"who is ", "tell me about ", "information about "}

	timeMarkers = []string{" at ", " pm", " am", " tomorrow", " in "}
)

func hasRelativeTime(q string) bool {
	if !strings.Contains(q, " in ") {
		return false
	}
	return strings.Contains(q, "second") || strings.Contains(q, "minute") || strings.Contains(q, "hour")
}

func hasClockTime(q string) bool {
	return strings.Contains(q, " at ") && (strings.Contains(q, " pm") || strings.Contains(q, " am"))
}

// Default builds the routing table in its load-bearing priority order. The
// placement rationale follows each rule's name; callers must not reorder.
func Default() *Classifier {
	rules := []Rule{
		{
			// A time expression turns an immediate desktop action into a
			// deferred one, so this outranks every plain desktop rule.
			Name:   "timed-desktop",
			Intent: Schedule,
			Match: func(q string) bool {
				if !hasRelativeTime(q) && !hasClockTime(q) {
					return false
				}
				return containsAny(q, launchVerbs)
			},
		},
		{
			Name:   "media-play-prefix",
			Intent: Media,
			Match: func(q string) bool {
				return strings.HasPrefix(q, "play ") && !containsAny(q, mediaPlayExclusions)
			},
		},
		{
			Name:   "media-keywords",
			Intent: Media,
			Match:  func(q string) bool { return containsAny(q, mediaKeywords) },
		},
		{
			// The voice email workflow owns its keywords even when the
			// utterance also mentions other domains.
			Name:   "email-keywords",
			Intent: Email,
			Match:  func(q string) bool { return containsAny(q, emailKeywords) },
		},
		{
			Name:   "communication-keywords",
			Intent: Communication,
			Match:  func(q string) bool { return containsAny(q, communicationKeywords) },
		},
		{
			Name:   "translation-keywords",
			Intent: Translation,
			Match:  func(q string) bool { return containsAny(q, translationKeywords) },
		},
		{
			Name:   "productivity-keywords",
			Intent: Productivity,
			Match:  func(q string) bool { return containsAny(q, productivityKeywords) },
		},
		{
			// "summarize" shows up in several domains and must land on the
			// document summarizer, so it precedes the organization keywords.
			Name:   "summarize",
			Intent: Documents,
			Match: func(q string) bool {
				return strings.Contains(q, "summarize") || strings.Contains(q, "summarise")
			},
		},
		{
			Name:   "document-keywords",
			Intent: Documents,
			Match:  func(q string) bool { return containsAny(q, documentKeywords) },
		},
		{
			Name:   "screen-time-keywords",
			Intent: ScreenTime,
			Match:  func(q string) bool { return containsAny(q, screenTimeKeywords) },
		},
		{
			Name:   "advanced-desktop-keywords",
			Intent: DesktopAdvanced,
			Match:  func(q string) bool { return containsAny(q, advancedDesktopKeywords) },
		},
		{
			Name:   "desktop-prefix",
			Intent: Desktop,
			Match:  func(q string) bool { return hasPrefixAny(q, desktopPrefixes) },
		},
		{
			Name:   "weather-keywords",
			Intent: Weather,
			Match:  func(q string) bool { return containsAny(q, weatherKeywords) },
		},
		{
			// "what is 5 plus 5" must reach the LLM, not an encyclopedia
			// lookup, so arithmetic indicators are tested first.
			Name:   "arithmetic",
			Intent: Conversation,
			Match: func(q string) bool {
				return containsAny(q, mathOperators) || containsAny(q, mathNumberWords)
			},
		},
		{
			Name:   "encyclopedia-patterns",
			Intent: Encyclopedia,
			Match: func(q string) bool {
				// Minimum-length guard: short phrases are usually commands.
				return hasPrefixAny(q, encyclopediaPrefixes) && len(strings.Fields(q)) >= 3
			},
		},
		{
			Name:   "schedule-phrases",
			Intent: Schedule,
			Match: func(q string) bool {
				if strings.HasPrefix(q, "remind me to") {
					return true
				}
				if strings.Contains(q, "schedule") && containsAny(q, timeMarkers) {
					return true
				}
				if strings.Contains(q, "set alarm") {
					return true
				}
				return strings.Contains(q, "set reminder") && containsAny(q, timeMarkers)
			},
		},
		{
			Name:   "desktop-verbs",
			Intent: Desktop,
			Match: func(q string) bool {
				return containsAny(q, []string{"open", "launch", "start", "close"})
			},
		},
	}
	return New(rules, Conversation)
}
