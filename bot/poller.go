package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kaustavray/mathbot/store"
	"github.com/kaustavray/mathbot/telegram"
)

// API is the slice of the Telegram client the poller consumes.
type API interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Observer receives per-update measurements. The otel package provides an
// implementation backed by OpenTelemetry instruments.
type Observer interface {
	UpdateReceived(ctx context.Context, chatID int64)
	EvaluationDone(ctx context.Context, ok bool, elapsed time.Duration)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Client is the Telegram API. Required.
	Client API

	// Dispatcher maps inbound text to replies. Required.
	Dispatcher *Dispatcher

	// Store checkpoints the poll offset and records evaluations.
	// If nil, an in-memory store is used.
	Store store.Store

	// Logger for the poll loop. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Tracer creates a span per handled update. If nil, spans are no-ops.
	Tracer trace.Tracer

	// Observer receives per-update measurements. Optional.
	Observer Observer

	// PollInterval is the pause between getUpdates calls (default 1s).
	PollInterval time.Duration

	// PollTimeout is the long-poll hold time (default 10s).
	PollTimeout time.Duration

	// DropPending discards updates queued while the bot was down.
	DropPending bool

	// SendInterval is the per-chat minimum gap between outbound sends
	// (0 = no pacing).
	SendInterval time.Duration

	// AllowedChatIDs restricts which chats the bot answers
	// (empty = all chats).
	AllowedChatIDs []int64
}

// Poller drives the long-poll loop: fetch updates, dispatch each message,
// send the reply, checkpoint the offset.
type Poller struct {
	client       API
	dispatcher   *Dispatcher
	store        store.Store
	logger       *slog.Logger
	tracer       trace.Tracer
	observer     Observer
	pacer        *pacer
	pollInterval time.Duration
	pollTimeout  time.Duration
	dropPending  bool
	allowed      map[int64]bool
}

// NewPoller creates a Poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Client == nil {
		return nil, errors.New("bot: client is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("bot: dispatcher is required")
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemStore(store.MemStoreConfig{})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("mathbot")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	var allowed map[int64]bool
	if len(cfg.AllowedChatIDs) > 0 {
		allowed = make(map[int64]bool, len(cfg.AllowedChatIDs))
		for _, id := range cfg.AllowedChatIDs {
			allowed[id] = true
		}
	}

	return &Poller{
		client:       cfg.Client,
		dispatcher:   cfg.Dispatcher,
		store:        cfg.Store,
		logger:       cfg.Logger,
		tracer:       cfg.Tracer,
		observer:     cfg.Observer,
		pacer:        newPacer(cfg.SendInterval),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		dropPending:  cfg.DropPending,
		allowed:      allowed,
	}, nil
}

// Run polls until the context is canceled. Cancellation is a clean stop,
// not an error.
func (p *Poller) Run(ctx context.Context) error {
	me, err := p.waitForMe(ctx)
	if err != nil {
		return err
	}
	if me == nil {
		return nil // canceled during startup
	}
	p.logger.Info("bot started", "username", me.Username, "id", me.ID)

	offset, err := p.store.Offset(ctx)
	if err != nil {
		p.logger.Warn("offset checkpoint unavailable", "error", err)
	}
	if p.dropPending {
		offset = p.fastForward(ctx, offset)
	}

	for {
		if ctx.Err() != nil {
			p.logger.Info("bot stopped")
			return nil
		}

		updates, next, err := p.client.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("bot stopped")
				return nil
			}
			p.logger.Warn("getUpdates failed", "error", err)
			if !sleepCtx(ctx, p.pollInterval) {
				return nil
			}
			continue
		}

		for _, u := range updates {
			p.handle(ctx, u)
		}

		if next != offset {
			offset = next
			if err := p.store.SetOffset(ctx, offset); err != nil {
				p.logger.Warn("offset checkpoint failed", "error", err)
			}
		}

		if !sleepCtx(ctx, p.pollInterval) {
			p.logger.Info("bot stopped")
			return nil
		}
	}
}

// waitForMe retries getMe until it succeeds or the context is canceled,
// mirroring the transport's startup behavior on flaky networks.
func (p *Poller) waitForMe(ctx context.Context) (*telegram.User, error) {
	for {
		me, err := p.client.GetMe(ctx)
		if err == nil {
			return me, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		p.logger.Warn("getMe failed", "error", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return nil, nil
		}
	}
}

// fastForward advances past everything already queued server-side. Offset
// -1 asks for only the newest update; its ID marks the tail of the queue.
func (p *Poller) fastForward(ctx context.Context, offset int64) int64 {
	_, next, err := p.client.GetUpdates(ctx, -1, 0)
	if err != nil {
		p.logger.Warn("drop pending failed", "error", err)
		return offset
	}
	if next > offset {
		p.logger.Info("dropped pending updates", "offset", next)
		if err := p.store.SetOffset(ctx, next); err != nil {
			p.logger.Warn("offset checkpoint failed", "error", err)
		}
		return next
	}
	return offset
}

func (p *Poller) handle(ctx context.Context, u telegram.Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}
	chatID := msg.Chat.ID
	if p.allowed != nil && !p.allowed[chatID] {
		p.logger.Warn("message from unauthorized chat", "chat_id", chatID)
		return
	}

	corrID := uuid.New().String()
	ctx, span := p.tracer.Start(ctx, "bot.update",
		trace.WithAttributes(
			attribute.Int64("mathbot.update_id", u.UpdateID),
			attribute.Int64("mathbot.chat_id", chatID),
		),
	)
	defer span.End()

	if p.observer != nil {
		p.observer.UpdateReceived(ctx, chatID)
	}

	start := time.Now()
	reply := p.dispatcher.Dispatch(msg.Text)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("mathbot.reply_kind", string(reply.Kind)))

	switch reply.Kind {
	case ReplyResult, ReplyInvalid:
		if p.observer != nil {
			p.observer.EvaluationDone(ctx, reply.Kind == ReplyResult, elapsed)
		}
		if err := p.store.Append(ctx, store.Record{
			ID:       corrID,
			UpdateID: u.UpdateID,
			ChatID:   chatID,
			Input:    msg.Text,
			OK:       reply.Kind == ReplyResult,
			Result:   reply.Result,
			Elapsed:  elapsed,
			Time:     start,
		}); err != nil {
			p.logger.Warn("record append failed", "error", err, "correlation_id", corrID)
		}
	case ReplyNone:
		return
	}

	if err := p.pacer.wait(ctx, chatID); err != nil {
		return
	}
	if err := p.client.SendMessage(ctx, chatID, reply.Text); err != nil {
		span.SetStatus(codes.Error, "send failed")
		span.RecordError(err)
		p.logger.Warn("sendMessage failed", "error", err, "chat_id", chatID, "correlation_id", corrID)
		return
	}
	p.logger.Debug("replied",
		"chat_id", chatID,
		"kind", reply.Kind,
		"elapsed", elapsed,
		"correlation_id", corrID,
	)
}

// sleepCtx pauses for d, returning false if the context was canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
