package editor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"InteriorEditor/pkg/generator"
	"InteriorEditor/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator performs one generation call and builds display URLs.
// *generator.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
	ImageURL(imagePath string, stamp int64) string
}

// SessionConfig tunes the cosmetic progress bar and the settle delay.
type SessionConfig struct {
	TickInterval time.Duration // how often progress advances
	MaxStep      float64       // upper bound of one random advance
	ProgressCap  float64       // progress never passes this while waiting
	SettleDelay  time.Duration // loading stays on this long after completion
}

// DefaultSessionConfig returns the standard timings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TickInterval: 500 * time.Millisecond,
		MaxStep:      10,
		ProgressCap:  90,
		SettleDelay:  500 * time.Millisecond,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.MaxStep <= 0 {
		c.MaxStep = d.MaxStep
	}
	if c.ProgressCap <= 0 || c.ProgressCap > 100 {
		c.ProgressCap = d.ProgressCap
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// Session owns one Form and runs submissions against a Generator. It is safe
// for concurrent use; at most one submission runs at a time.
type Session struct {
	mu        sync.Mutex
	form      Form
	gen       Generator
	cfg       SessionConfig
	onChange  func(Form)
	inFlight  bool
	closed    bool
	cancel    context.CancelFunc
	lastStamp int64
	active    sync.WaitGroup

	now    func() time.Time
	random func() float64
}

// NewSession returns a session in create mode with the default prompt.
func NewSession(gen Generator, cfg SessionConfig) *Session {
	return &Session{
		form:   NewForm(),
		gen:    gen,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		random: rand.Float64,
	}
}

// OnChange registers fn to receive a copy of the form after every change.
// fn runs on the goroutine that made the change and must not block for long.
func (s *Session) OnChange(fn func(Form)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns a copy of the current form.
func (s *Session) Snapshot() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Busy reports whether a submission is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// SetMode switches mode and loads its default prompt.
func (s *Session) SetMode(m Mode) {
	s.update(func(f *Form) { f.SetMode(m) })
}

// ToggleMode flips between create and edit.
func (s *Session) ToggleMode() {
	s.update(func(f *Form) { f.SetMode(f.Mode.Toggle()) })
}

// SetPrompt replaces the prompt and clears the error.
func (s *Session) SetPrompt(p string) {
	s.update(func(f *Form) { f.SetPrompt(p) })
}

// SelectFile replaces the selected image and clears the error.
func (s *Session) SelectFile(file *File) {
	s.update(func(f *Form) { f.SelectFile(file) })
}

// ClearFile drops the selected image.
func (s *Session) ClearFile() {
	s.update(func(f *Form) { f.ClearFile() })
}

func (s *Session) update(fn func(*Form)) {
	s.mu.Lock()
	fn(&s.form)
	snap, notify := s.changedLocked()
	s.mu.Unlock()
	notify(snap)
}

// changedLocked bumps the version and returns the copy to publish.
func (s *Session) changedLocked() (Form, func(Form)) {
	s.form.Version++
	fn := s.onChange
	if fn == nil {
		fn = func(Form) {}
	}
	return s.form, fn
}

// Submit validates the form and, if valid, runs one generation. It blocks
// until the request finished and the settle delay elapsed (or the session
// was closed). The returned error is the one reflected in Form.Error;
// ErrBusy and ErrClosed leave the form untouched.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := s.form.Validate(); err != nil {
		s.form.fail(err.Error())
		snap, notify := s.changedLocked()
		s.mu.Unlock()
		notify(snap)
		return err
	}

	req := generator.Request{
		ID:     uuid.NewString(),
		Prompt: s.form.Prompt,
	}
	if s.form.Mode == ModeEdit && s.form.File != nil {
		req.Upload = &generator.Upload{
			Name:        s.form.File.Name,
			Data:        s.form.File.Data,
			ContentType: s.form.File.ContentType,
		}
	}
	mode := s.form.Mode

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.inFlight = true
	s.active.Add(1)
	s.form.begin()
	snap, notify := s.changedLocked()
	s.mu.Unlock()
	notify(snap)

	defer s.active.Done()
	defer cancel()

	logger.Info("generation started",
		zap.String("request_id", req.ID),
		zap.String("mode", string(mode)),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("image_bytes", uploadSize(req.Upload)),
	)

	tickCtx, stopTicks := context.WithCancel(runCtx)
	ticksDone := make(chan struct{})
	go func() {
		defer close(ticksDone)
		s.runProgress(tickCtx)
	}()

	start := time.Now()
	res, err := s.gen.Generate(runCtx, req)
	stopTicks()
	<-ticksDone

	s.mu.Lock()
	if err == nil && (res == nil || res.ImagePath == "") {
		err = &generator.Error{Kind: generator.KindResponse, Message: generator.MissingImagePathMessage}
	}
	if err != nil {
		if generator.Answered(err) {
			s.form.answered()
		}
		s.form.fail(UserMessage(err))
	} else {
		s.form.succeed(s.gen.ImageURL(res.ImagePath, s.nextStampLocked()))
	}
	snap, notify = s.changedLocked()
	s.mu.Unlock()
	notify(snap)

	if err != nil {
		logger.Warn("generation failed",
			zap.String("request_id", req.ID),
			zap.Stringer("kind", generator.KindOf(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	} else {
		logger.Info("generation finished",
			zap.String("request_id", req.ID),
			zap.String("image_path", res.ImagePath),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	s.settle(runCtx)

	s.mu.Lock()
	s.form.Loading = false
	s.inFlight = false
	s.cancel = nil
	snap, notify = s.changedLocked()
	s.mu.Unlock()
	notify(snap)

	return err
}

// runProgress advances the cosmetic progress until ctx ends.
func (s *Session) runProgress(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.form.advance(s.random()*s.cfg.MaxStep, s.cfg.ProgressCap)
			snap, notify := s.changedLocked()
			s.mu.Unlock()
			notify(snap)
		}
	}
}

// settle keeps the finished progress bar visible for SettleDelay.
func (s *Session) settle(ctx context.Context) {
	if s.cfg.SettleDelay == 0 {
		return
	}
	timer := time.NewTimer(s.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// nextStampLocked returns a cache-busting stamp greater than the last one.
func (s *Session) nextStampLocked() int64 {
	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp
	return stamp
}

// Cancel aborts the in-flight submission, if any. The session stays usable.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels any in-flight request, progress ticker and settle timer, and
// waits for the submission to unwind. Later Submit calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.active.Wait()
	return nil
}

func uploadSize(up *generator.Upload) int {
	if up == nil {
		return 0
	}
	return len(up.Data)
}

// UserMessage returns the text a user should see for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Generation cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out"
	default:
		return err.Error()
	}
}
