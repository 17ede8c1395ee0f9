// Package bot wires the Telegram transport to the expression evaluator:
// a Dispatcher that maps inbound text to reply text, and a Poller that
// drives the getUpdates long-poll loop.
package bot

import (
	"log/slog"
	"strings"

	"github.com/kaustavray/mathbot/expr"
)

// WelcomeMessage is the /start reply.
const WelcomeMessage = "Hi! I am a Math Bot 🤖\nSend me any math expression (e.g., 2+3*5) and I'll solve it."

// InvalidReply is the fixed reply for any evaluation failure.
const InvalidReply = "❌ Invalid expression. Try again!"

// ReplyKind classifies a dispatch outcome.
type ReplyKind string

const (
	// ReplyNone means the message is ignored (unknown commands,
	// empty text, oversized input... no reply is sent).
	ReplyNone ReplyKind = "none"

	// ReplyWelcome is the /start response.
	ReplyWelcome ReplyKind = "welcome"

	// ReplyResult carries a successful evaluation.
	ReplyResult ReplyKind = "result"

	// ReplyInvalid is the fixed invalid-expression response.
	ReplyInvalid ReplyKind = "invalid"
)

// Reply is the outcome of dispatching one inbound text.
type Reply struct {
	Kind ReplyKind
	Text string

	// Result is the rendered value when Kind is ReplyResult.
	Result string
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Welcome overrides the /start reply.
	Welcome string

	// Invalid overrides the invalid-expression reply.
	Invalid string

	// MaxInputLen rejects longer inputs without parsing them
	// (0 = no limit).
	MaxInputLen int

	// Logger for per-message decisions. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Dispatcher routes inbound chat text: /start (and /help) to the welcome
// reply, other commands to silence, everything else through the evaluator.
// It is stateless and safe for concurrent use.
type Dispatcher struct {
	welcome     string
	invalid     string
	maxInputLen int
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Welcome == "" {
		cfg.Welcome = WelcomeMessage
	}
	if cfg.Invalid == "" {
		cfg.Invalid = InvalidReply
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		welcome:     cfg.Welcome,
		invalid:     cfg.Invalid,
		maxInputLen: cfg.MaxInputLen,
		logger:      cfg.Logger,
	}
}

// Dispatch maps one inbound text to a reply.
func (d *Dispatcher) Dispatch(text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Kind: ReplyNone}
	}

	if strings.HasPrefix(text, "/") {
		switch command(text) {
		case "/start", "/help":
			return Reply{Kind: ReplyWelcome, Text: d.welcome}
		default:
			// Unknown commands get no reply; only plain text reaches
			// the evaluator.
			return Reply{Kind: ReplyNone}
		}
	}

	if d.maxInputLen > 0 && len(text) > d.maxInputLen {
		d.logger.Debug("input over length limit", "len", len(text), "limit", d.maxInputLen)
		return Reply{Kind: ReplyInvalid, Text: d.invalid}
	}

	value, err := expr.Evaluate(text)
	if err != nil {
		return Reply{Kind: ReplyInvalid, Text: d.invalid}
	}
	rendered := value.String()
	return Reply{Kind: ReplyResult, Text: "Result: " + rendered, Result: rendered}
}

// OnText returns the outbound reply text for one inbound text; empty means
// no reply is sent.
func (d *Dispatcher) OnText(text string) string {
	return d.Dispatch(text).Text
}

// command extracts the command word, dropping a @botname suffix
// ("/start@math_bot" is still /start).
func command(text string) string {
	word := text
	if i := strings.IndexAny(word, " \t\n"); i >= 0 {
		word = word[:i]
	}
	if i := strings.Index(word, "@"); i >= 0 {
		word = word[:i]
	}
	return word
}
