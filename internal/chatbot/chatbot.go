package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"ThinkChat/internal/answers"
	"ThinkChat/internal/config"
	"ThinkChat/internal/prompt"
	"ThinkChat/internal/render"
	"ThinkChat/internal/session"
	"ThinkChat/internal/telemetry"
	"ThinkChat/internal/transcript"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ErrNotDevMode is returned for operator actions outside dev mode
var ErrNotDevMode = errors.New("operator controls require dev mode")

// Outcome is how a submission was handled
type Outcome string

const (
	Accepted Outcome = "accepted"
	Rejected Outcome = "rejected"
	Ignored  Outcome = "ignored"
)

// SubmitResult reports a submission. Message is set when Accepted;
// Warning is set when Rejected.
type SubmitResult struct {
	Outcome Outcome
	Message session.Message
	Warning string
}

// View is a front end's drawing surface for one conversation
type View interface {
	Markup() render.Markup
	// Slot returns the single slot the next answer is drawn into
	Slot() render.Slot
	// Commit turns the slot into a permanent message
	Commit(msg session.Message)
	// Notice shows the end-of-interaction banner
	Notice(text string)
}

// Archive stores completed sessions
type Archive interface {
	Save(ctx context.Context, rec transcript.Record) error
}

// Options are the collaborators of a ChatBot. Zero values get no-op or
// default implementations.
type Options struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Meter   metric.Meter
	Archive Archive
	Clock   render.Clock
	Rand    *rand.Rand
}

// Conversation is one participant's session plus its operator settings.
// The mutex only serialises events for this one conversation.
type Conversation struct {
	mu       sync.Mutex
	session  *session.Session
	settings Settings
	rendered render.Params // what the committed answer was rendered with
}

// ChatBot represents the main application
type ChatBot struct {
	config    *config.Config
	validator *prompt.Validator
	pool      *answers.Pool
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *telemetry.Metrics
	archive   Archive
	clock     render.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	mu            sync.Mutex
	conversations map[string]*Conversation
}

// New creates a new ChatBot instance
func New(cfg *config.Config, opts Options) (*ChatBot, error) {
	pool, err := answers.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build answer pool: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("thinkchat")
	}
	if opts.Meter == nil {
		opts.Meter = metricnoop.NewMeterProvider().Meter("thinkchat")
	}
	if opts.Clock == nil {
		opts.Clock = render.RealClock
	}
	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(now, now>>32))
	}

	metrics, err := telemetry.NewMetrics(opts.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.DevMode {
		opts.Logger.Info("Dev mode enabled")
	}

	return &ChatBot{
		config:        cfg,
		validator:     prompt.NewValidator(cfg.RequiredQuestion),
		pool:          pool,
		logger:        opts.Logger,
		tracer:        opts.Tracer,
		metrics:       metrics,
		archive:       opts.Archive,
		clock:         opts.Clock,
		rng:           opts.Rand,
		conversations: make(map[string]*Conversation),
	}, nil
}

// Config returns the experiment configuration
func (cb *ChatBot) Config() *config.Config {
	return cb.config
}

// Conversation returns the conversation for id, creating it on first use
func (cb *ChatBot) Conversation(id string) *Conversation {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if conv, ok := cb.conversations[id]; ok {
		return conv
	}
	conv := &Conversation{
		session:  session.New(id),
		settings: DefaultSettings(cb.config),
	}
	cb.conversations[id] = conv
	cb.logger.Info("created new session", "session_id", id, "pool", cb.pool.Name)
	return conv
}

// Snapshot is a consistent copy of a conversation
type Snapshot struct {
	Session  session.Session
	Settings Settings
	Notice   string
}

// Snapshot copies the conversation state for drawing
func (cb *ChatBot) Snapshot(conv *Conversation) Snapshot {
	conv.mu.Lock()
	defer conv.mu.Unlock()

	snap := Snapshot{
		Session:  conv.session.Snapshot(),
		Settings: conv.settings,
	}
	if conv.session.EndShown {
		snap.Notice = session.EndNotice(cb.config.VerifyCode)
	}
	return snap
}

// Submit handles a participant's question
func (cb *ChatBot) Submit(ctx context.Context, conv *Conversation, text string) SubmitResult {
	ctx, span := cb.tracer.Start(ctx, "submit")
	defer span.End()

	conv.mu.Lock()
	cb.rngMu.Lock()
	err := conv.session.Submit(text, cb.validator, cb.pool, cb.rng)
	cb.rngMu.Unlock()
	id := conv.session.ID
	var msg session.Message
	if err == nil {
		msg = conv.session.Messages[len(conv.session.Messages)-1]
	}
	conv.mu.Unlock()

	var res SubmitResult
	switch {
	case err == nil:
		res = SubmitResult{Outcome: Accepted, Message: msg}
		cb.logger.Info("question accepted", "session_id", id)
	case errors.Is(err, session.ErrQuestionMismatch):
		res = SubmitResult{Outcome: Rejected, Warning: prompt.Warning}
		cb.logger.Info("question rejected", "session_id", id, "normalized", prompt.Normalize(text))
	default:
		res = SubmitResult{Outcome: Ignored}
		cb.logger.Debug("submission ignored", "session_id", id, "reason", err)
	}

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	cb.metrics.Submission(ctx, string(res.Outcome))
	return res
}

// Advance performs whatever work the conversation still needs: render the
// pending answer, wait out the end delay and show the end notice. Each
// step is guarded by the session flags, so calling Advance again (or from
// two places at once) never repeats finished work.
func (cb *ChatBot) Advance(ctx context.Context, conv *Conversation, view View) {
	cb.renderPending(ctx, conv, view)
	cb.finish(ctx, conv, view)
}

func (cb *ChatBot) renderPending(ctx context.Context, conv *Conversation, view View) {
	conv.mu.Lock()
	answer, epoch, ok := conv.session.BeginRender()
	params := conv.settings.Resolve(cb.config)
	id := conv.session.ID
	conv.mu.Unlock()
	if !ok {
		return
	}

	ctx, span := cb.tracer.Start(ctx, "render")
	span.SetAttributes(
		attribute.String("mode", string(params.Mode)),
		attribute.Bool("thinking_enabled", params.ThinkingEnabled),
		attribute.Float64("thinking_time", params.Duration.Seconds()),
	)

	start := cb.clock.Now()
	renderer := render.New(view.Markup(), cb.config.DisplayTime)
	renderer.Clock = cb.clock
	content := renderer.Render(view.Slot(), answer, params)
	elapsed := cb.clock.Now().Sub(start)
	span.End()
	cb.metrics.Rendered(ctx, elapsed, string(params.Mode))

	conv.mu.Lock()
	done := conv.session.CompleteRender(epoch, content)
	var msg session.Message
	if done {
		msg = conv.session.Messages[len(conv.session.Messages)-1]
		conv.rendered = params
	}
	conv.mu.Unlock()

	if !done {
		cb.logger.Info("render discarded after reset", "session_id", id)
		return
	}
	view.Commit(msg)
	cb.logger.Info("answer rendered", "session_id", id, "mode", params.Mode, "elapsed", elapsed)
}

func (cb *ChatBot) finish(ctx context.Context, conv *Conversation, view View) {
	conv.mu.Lock()
	due := conv.session.Answered && !conv.session.EndShown
	epoch := conv.session.Epoch
	conv.mu.Unlock()
	if !due {
		return
	}

	cb.clock.Sleep(cb.config.EndDelayDuration())

	ctx, span := cb.tracer.Start(ctx, "end_notice")
	defer span.End()

	conv.mu.Lock()
	shown := conv.session.ShowEnd(epoch)
	snap := conv.session.Snapshot()
	params := conv.rendered
	conv.mu.Unlock()
	if !shown {
		return
	}

	view.Notice(session.EndNotice(cb.config.VerifyCode))
	cb.metrics.Completed(ctx)
	cb.logger.Info("end notice shown", "session_id", snap.ID, "message_count", len(snap.Messages))

	if cb.archive == nil {
		return
	}
	rec := transcript.Record{
		SessionID:    snap.ID,
		StartTime:    snap.StartTime,
		CompletedAt:  time.Now(),
		Mode:         string(params.Mode),
		ThinkingTime: params.Duration.Seconds(),
		VerifyCode:   cb.config.VerifyCode,
		Messages:     snap.Messages,
	}
	if err := cb.archive.Save(ctx, rec); err != nil {
		cb.logger.Error("failed to archive session", "session_id", snap.ID, "error", err)
	}
}

// Reset clears the conversation. Operator only.
func (cb *ChatBot) Reset(ctx context.Context, conv *Conversation) error {
	if !cb.config.DevMode {
		return ErrNotDevMode
	}
	conv.mu.Lock()
	conv.session.Reset()
	id := conv.session.ID
	conv.mu.Unlock()

	cb.metrics.Reset(ctx)
	cb.logger.Info("session reset", "session_id", id)
	return nil
}

// UpdateSettings changes the operator mode and custom thinking time
func (cb *ChatBot) UpdateSettings(conv *Conversation, mode render.Mode, thinkingTime float64) (Settings, error) {
	if !cb.config.DevMode {
		return Settings{}, ErrNotDevMode
	}
	next, err := NewSettings(mode, thinkingTime)
	if err != nil {
		return Settings{}, err
	}

	conv.mu.Lock()
	conv.settings = next
	id := conv.session.ID
	conv.mu.Unlock()

	cb.logger.Info("settings changed", "session_id", id, "mode", next.Mode, "thinking_time", next.ThinkingTime)
	return next, nil
}
