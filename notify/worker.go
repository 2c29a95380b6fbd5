package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/agrosite/agrosite/store"
)

// WorkerConfig controls outbox delivery.
type WorkerConfig struct {
	SiteName string
	From     string
	To       []string

	PollInterval time.Duration // how often the outbox is scanned (default 10s)
	BatchSize    int           // messages claimed per scan (default 20)
	MaxAttempts  int           // attempts before a message is marked failed (default 5)
	SendTimeout  time.Duration // bound on a single send (default 10s)

	// RetryInterval is the first in-call backoff interval; Retries bounds how
	// many times a send is retried before the attempt counts as failed.
	RetryInterval time.Duration
	Retries       uint64

	// RescheduleBase is the delay after the first failed attempt; it doubles
	// with every further attempt up to RescheduleMax.
	RescheduleBase time.Duration
	RescheduleMax  time.Duration
}

func (c *WorkerConfig) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Agrosite"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 500 * time.Millisecond
	}
	if c.RescheduleBase <= 0 {
		c.RescheduleBase = time.Minute
	}
	if c.RescheduleMax <= 0 {
		c.RescheduleMax = time.Hour
	}
}

// Worker drains the outbox. A single worker per database is assumed; messages
// are not locked while being sent.
type Worker struct {
	store  store.Store
	sender Sender
	cfg    WorkerConfig
	log    zerolog.Logger
	nudge  chan struct{}
	now    func() time.Time
}

func NewWorker(st store.Store, sender Sender, cfg WorkerConfig, log zerolog.Logger) *Worker {
	cfg.setDefaults()
	return &Worker{
		store:  st,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("component", "outbox").Logger(),
		nudge:  make(chan struct{}, 1),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Nudge asks the worker to scan the outbox now. It never blocks.
func (w *Worker) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// Run processes due messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info().Dur("poll_interval", w.cfg.PollInterval).Msg("outbox worker started")
	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("process outbox")
		}
		select {
		case <-ctx.Done():
			w.log.Info().Msg("outbox worker stopped")
			return nil
		case <-ticker.C:
		case <-w.nudge:
		}
	}
}

// ProcessDue delivers one batch of due messages and returns how many were
// sent.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.store.Outbox().Due(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due messages: %w", err)
	}
	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := w.deliver(ctx, &due[i])
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// deliver sends m and records the outcome. The returned error is only set
// when the outcome could not be stored.
func (w *Worker) deliver(ctx context.Context, m *store.OutboxMessage) (bool, error) {
	log := w.log.With().Int64("outbox_id", m.ID).Str("kind", string(m.Kind)).Int64("ref_id", m.RefID).Logger()
	attempts := m.Attempts + 1

	msg, err := w.compose(ctx, m)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, errUnknownKind) {
			log.Error().Err(err).Msg("delivery abandoned")
			return false, w.store.Outbox().MarkAttempt(ctx, m.ID, attempts, time.Time{}, err.Error())
		}
		return false, err
	}

	if err := w.send(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		var next time.Time
		if attempts < w.cfg.MaxAttempts {
			next = w.now().Add(w.rescheduleDelay(attempts))
			log.Warn().Err(err).Int("attempts", attempts).Time("next_attempt_at", next).Msg("delivery failed, rescheduled")
		} else {
			log.Error().Err(err).Int("attempts", attempts).Msg("delivery failed permanently")
		}
		return false, w.store.Outbox().MarkAttempt(ctx, m.ID, attempts, next, err.Error())
	}

	log.Info().Int("attempts", attempts).Msg("delivered")
	return true, w.store.Outbox().MarkSent(ctx, m.ID, w.now())
}

var errUnknownKind = errors.New("unknown outbox kind")

func (w *Worker) compose(ctx context.Context, m *store.OutboxMessage) (Message, error) {
	var (
		msg Message
		err error
	)
	switch m.Kind {
	case store.OutboxContactMessage:
		var cm *store.ContactMessage
		cm, err = w.store.ContactMessages().GetByID(ctx, m.RefID)
		if err != nil {
			return Message{}, fmt.Errorf("contact message %d: %w", m.RefID, err)
		}
		msg, err = ContactEmail(ctx, w.cfg.SiteName, cm)
	case store.OutboxJobApplication:
		var ja *store.JobApplication
		ja, err = w.store.JobApplications().GetByID(ctx, m.RefID)
		if err != nil {
			return Message{}, fmt.Errorf("job application %d: %w", m.RefID, err)
		}
		msg, err = JobApplicationEmail(ctx, w.cfg.SiteName, ja)
	default:
		return Message{}, fmt.Errorf("%w: %q", errUnknownKind, m.Kind)
	}
	if err != nil {
		return Message{}, err
	}
	msg.From = w.cfg.From
	msg.To = w.cfg.To
	return msg, nil
}

// send retries msg with exponential backoff, each try bounded by SendTimeout.
func (w *Worker) send(ctx context.Context, msg Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.RetryInterval
	b.MaxElapsedTime = 0

	op := func() error {
		sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
		defer cancel()
		return w.sender.Send(sendCtx, msg)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, w.cfg.Retries), ctx))
}

func (w *Worker) rescheduleDelay(attempts int) time.Duration {
	d := w.cfg.RescheduleBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= w.cfg.RescheduleMax {
			return w.cfg.RescheduleMax
		}
	}
	return d
}
