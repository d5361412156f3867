package editor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"InteriorEditor/pkg/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []generator.Request
	result  *generator.Result
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeGenerator) ImageURL(imagePath string, stamp int64) string {
	return fmt.Sprintf("http://test/images/%s?t=%d", path.Base(imagePath), stamp)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func fastConfig() SessionConfig {
	return SessionConfig{
		TickInterval: time.Millisecond,
		MaxStep:      10,
		ProgressCap:  90,
		SettleDelay:  time.Millisecond,
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession(&fakeGenerator{}, SessionConfig{})
	f := s.Snapshot()

	assert.Equal(t, ModeCreate, f.Mode)
	assert.Equal(t, DefaultCreatePrompt, f.Prompt)
	assert.False(t, f.Loading)
	assert.Empty(t, f.ImageURL)

	d := DefaultSessionConfig()
	assert.Equal(t, d.TickInterval, s.cfg.TickInterval)
	assert.Equal(t, d.MaxStep, s.cfg.MaxStep)
	assert.Equal(t, d.ProgressCap, s.cfg.ProgressCap)
	assert.Equal(t, 500*time.Millisecond, d.SettleDelay)
}

func TestSetModeResetsPrompt(t *testing.T) {
	s := NewSession(&fakeGenerator{}, fastConfig())

	s.SetPrompt("my own words")
	s.SetMode(ModeEdit)
	assert.Equal(t, DefaultEditPrompt, s.Snapshot().Prompt)

	s.SetPrompt("edited again")
	s.ToggleMode()
	f := s.Snapshot()
	assert.Equal(t, ModeCreate, f.Mode)
	assert.Equal(t, DefaultCreatePrompt, f.Prompt)
}

func TestModeSwitchKeepsFile(t *testing.T) {
	s := NewSession(&fakeGenerator{}, fastConfig())
	file := &File{Name: "room.png", Data: []byte("x")}

	s.SetMode(ModeEdit)
	s.SelectFile(file)
	s.SetMode(ModeCreate)
	assert.Same(t, file, s.Snapshot().File)

	s.ClearFile()
	assert.Nil(t, s.Snapshot().File)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Session)
		wantErr error
	}{
		{"empty prompt", func(s *Session) { s.SetPrompt("") }, ErrEmptyPrompt},
		{"whitespace prompt", func(s *Session) { s.SetPrompt(" \t\n ") }, ErrEmptyPrompt},
		{"edit without file", func(s *Session) { s.SetMode(ModeEdit) }, ErrMissingImage},
		{"prompt checked before file", func(s *Session) { s.SetMode(ModeEdit); s.SetPrompt("  ") }, ErrEmptyPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{result: &generator.Result{ImagePath: "x.png"}}
			s := NewSession(gen, fastConfig())
			tt.setup(s)

			err := s.Submit(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidation(err))
			assert.Zero(t, gen.callCount(), "validation failures must not reach the network")

			f := s.Snapshot()
			assert.Equal(t, tt.wantErr.Error(), f.Error)
			assert.False(t, f.Loading)
		})
	}
}

func TestValidationMessages(t *testing.T) {
	assert.Equal(t, "Please enter a prompt!", ErrEmptyPrompt.Error())
	assert.Equal(t, "Please upload an image to edit!", ErrMissingImage.Error())
}

func TestEditsClearError(t *testing.T) {
	s := NewSession(&fakeGenerator{}, fastConfig())
	s.SetPrompt("")
	_ = s.Submit(context.Background())
	require.NotEmpty(t, s.Snapshot().Error)

	s.SetPrompt("a")
	assert.Empty(t, s.Snapshot().Error)

	s.SetPrompt("")
	_ = s.Submit(context.Background())
	require.NotEmpty(t, s.Snapshot().Error)

	s.SelectFile(&File{Name: "a.png"})
	assert.Empty(t, s.Snapshot().Error)
}

func TestSubmitSuccess(t *testing.T) {
	gen := &fakeGenerator{result: &generator.Result{ImagePath: "/out/abc123.png"}}
	s := NewSession(gen, fastConfig())

	require.NoError(t, s.Submit(context.Background()))

	f := s.Snapshot()
	assert.Equal(t, float64(100), f.Progress)
	assert.False(t, f.Loading)
	assert.Empty(t, f.Error)
	assert.True(t, strings.HasPrefix(f.ImageURL, "http://test/images/abc123.png?t="), f.ImageURL)

	require.Equal(t, 1, gen.callCount())
	assert.Equal(t, DefaultCreatePrompt, gen.calls[0].Prompt)
	assert.Nil(t, gen.calls[0].Upload, "create mode never uploads")
	assert.NotEmpty(t, gen.calls[0].ID)
}

func TestSubmitEditSendsFile(t *testing.T) {
	gen := &fakeGenerator{result: &generator.Result{ImagePath: "a.png"}}
	s := NewSession(gen, fastConfig())
	s.SetMode(ModeEdit)
	s.SelectFile(&File{Name: "room.jpg", Data: []byte{1, 2, 3}, ContentType: "image/jpeg"})

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, 1, gen.callCount())
	up := gen.calls[0].Upload
	require.NotNil(t, up)
	assert.Equal(t, "room.jpg", up.Name)
	assert.Equal(t, []byte{1, 2, 3}, up.Data)
	assert.Equal(t, "image/jpeg", up.ContentType)
}

func TestSubmitCreateIgnoresSelectedFile(t *testing.T) {
	gen := &fakeGenerator{result: &generator.Result{ImagePath: "a.png"}}
	s := NewSession(gen, fastConfig())
	s.SelectFile(&File{Name: "room.jpg", Data: []byte{1}})

	require.NoError(t, s.Submit(context.Background()))
	assert.Nil(t, gen.calls[0].Upload)
}

func TestStampsIncrease(t *testing.T) {
	gen := &fakeGenerator{result: &generator.Result{ImagePath: "/out/abc123.png"}}
	s := NewSession(gen, fastConfig())
	fixed := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Submit(context.Background()))
	first := s.Snapshot().ImageURL
	require.NoError(t, s.Submit(context.Background()))
	second := s.Snapshot().ImageURL

	assert.NotEqual(t, first, second)
	assert.Equal(t, "http://test/images/abc123.png?t=1700000000000", first)
	assert.Equal(t, "http://test/images/abc123.png?t=1700000000001", second)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		result   *generator.Result
		err      error
		message  string
		answered bool
	}{
		{"missing image path", &generator.Result{}, nil, "Server didn't return image path", true},
		{"nil result", nil, nil, "Server didn't return image path", true},
		{"server error on 200", nil, &generator.Error{Kind: generator.KindServer, StatusCode: http.StatusOK, Message: "model crashed"}, "model crashed", true},
		{"server error on 500", nil, &generator.Error{Kind: generator.KindServer, StatusCode: http.StatusInternalServerError, Message: "model crashed"}, "model crashed", false},
		{"status error", nil, &generator.Error{Kind: generator.KindStatus, StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}, "Bad Gateway", false},
		{"transport error", nil, &generator.Error{Kind: generator.KindTransport, Message: "connection refused"}, "connection refused", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&fakeGenerator{result: tt.result, err: tt.err}, fastConfig())

			err := s.Submit(context.Background())
			require.Error(t, err)

			f := s.Snapshot()
			assert.Equal(t, tt.message, f.Error)
			assert.Empty(t, f.ImageURL)
			assert.False(t, f.Loading)
			if tt.answered {
				assert.Equal(t, float64(100), f.Progress)
			} else {
				assert.Less(t, f.Progress, float64(100))
			}
		})
	}
}

func TestSubmitClearsPreviousResult(t *testing.T) {
	gen := &fakeGenerator{result: &generator.Result{ImagePath: "a.png"}}
	s := NewSession(gen, fastConfig())
	require.NoError(t, s.Submit(context.Background()))
	require.NotEmpty(t, s.Snapshot().ImageURL)

	var (
		mu    sync.Mutex
		begun *Form
	)
	s.OnChange(func(f Form) {
		mu.Lock()
		defer mu.Unlock()
		if begun == nil && f.Loading {
			copied := f
			begun = &copied
		}
	})

	gen.err = &generator.Error{Kind: generator.KindServer, Message: "boom"}
	require.Error(t, s.Submit(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, begun)
	assert.Empty(t, begun.ImageURL, "result cleared when the submission starts")
	assert.Empty(t, begun.Error)
	assert.Zero(t, begun.Progress, "progress reset to 0 at the start of a submission")
	assert.Empty(t, s.Snapshot().ImageURL)
}

func TestProgressCappedWhileWaiting(t *testing.T) {
	gen := &fakeGenerator{
		result: &generator.Result{ImagePath: "a.png"},
		block:  make(chan struct{}),
	}
	s := NewSession(gen, fastConfig())
	s.random = func() float64 { return 1 }

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	require.Eventually(t, func() bool { return s.Snapshot().Progress == 90 }, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, float64(90), s.Snapshot().Progress)
	assert.True(t, s.Snapshot().Loading)

	close(gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, float64(100), s.Snapshot().Progress)
}

func TestLoadingClearsAfterSettleDelay(t *testing.T) {
	cfg := fastConfig()
	cfg.SettleDelay = 60 * time.Millisecond
	s := NewSession(&fakeGenerator{result: &generator.Result{ImagePath: "a.png"}}, cfg)

	var (
		mu         sync.Mutex
		finishedAt time.Time
		clearedAt  time.Time
	)
	s.OnChange(func(f Form) {
		mu.Lock()
		defer mu.Unlock()
		if f.Progress == 100 && f.Loading && finishedAt.IsZero() {
			finishedAt = time.Now()
		}
		if !f.Loading && !finishedAt.IsZero() && clearedAt.IsZero() {
			clearedAt = time.Now()
		}
	})

	require.NoError(t, s.Submit(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.False(t, finishedAt.IsZero())
	require.False(t, clearedAt.IsZero())
	gap := clearedAt.Sub(finishedAt)
	assert.GreaterOrEqual(t, gap, 50*time.Millisecond)
	assert.Less(t, gap, time.Second)
}

func TestLoadingClearsAfterSettleDelayOnFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"server error", &generator.Error{Kind: generator.KindServer, StatusCode: http.StatusOK, Message: "model crashed"}},
		{"status error", &generator.Error{Kind: generator.KindStatus, StatusCode: http.StatusBadGateway, Message: "Bad Gateway"}},
		{"transport error", &generator.Error{Kind: generator.KindTransport, Message: "connection refused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig()
			cfg.SettleDelay = 60 * time.Millisecond
			s := NewSession(&fakeGenerator{err: tt.err}, cfg)

			var (
				mu        sync.Mutex
				failedAt  time.Time
				clearedAt time.Time
			)
			s.OnChange(func(f Form) {
				mu.Lock()
				defer mu.Unlock()
				if f.Error != "" && f.Loading && failedAt.IsZero() {
					failedAt = time.Now()
				}
				if !f.Loading && !failedAt.IsZero() && clearedAt.IsZero() {
					clearedAt = time.Now()
				}
			})

			require.Error(t, s.Submit(context.Background()))

			mu.Lock()
			defer mu.Unlock()
			require.False(t, failedAt.IsZero(), "error shown while still loading")
			require.False(t, clearedAt.IsZero())
			gap := clearedAt.Sub(failedAt)
			assert.GreaterOrEqual(t, gap, 50*time.Millisecond)
			assert.Less(t, gap, time.Second)
		})
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	gen := &fakeGenerator{
		result:  &generator.Result{ImagePath: "a.png"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(gen, fastConfig())

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-gen.started

	assert.True(t, s.Busy())
	assert.ErrorIs(t, s.Submit(context.Background()), ErrBusy)
	assert.Equal(t, 1, gen.callCount())

	close(gen.block)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
}

func TestCloseCancelsInFlight(t *testing.T) {
	cfg := fastConfig()
	cfg.SettleDelay = time.Hour
	gen := &fakeGenerator{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(gen, cfg)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-gen.started

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	f := s.Snapshot()
	assert.False(t, f.Loading, "loading cleared without waiting for the settle delay")
	assert.Equal(t, "Generation cancelled", f.Error)

	assert.ErrorIs(t, s.Submit(context.Background()), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestCancelKeepsSessionUsable(t *testing.T) {
	gen := &fakeGenerator{
		result:  &generator.Result{ImagePath: "a.png"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(gen, fastConfig())

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-gen.started
	s.Cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	gen.block = nil
	gen.started = nil
	require.NoError(t, s.Submit(context.Background()))
}

func TestVersionsIncrease(t *testing.T) {
	s := NewSession(&fakeGenerator{result: &generator.Result{ImagePath: "a.png"}}, fastConfig())

	var (
		mu       sync.Mutex
		versions []uint64
	)
	s.OnChange(func(f Form) {
		mu.Lock()
		versions = append(versions, f.Version)
		mu.Unlock()
	})

	s.SetPrompt("loft")
	require.NoError(t, s.Submit(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(versions), 4)
	seen := map[uint64]bool{}
	for _, v := range versions {
		assert.False(t, seen[v], "version %d published twice", v)
		seen[v] = true
	}
	assert.Equal(t, s.Snapshot().Version, versions[len(versions)-1])
}

// End-to-end against the real client and an httptest server.

func TestSessionWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image_path":"/out/abc123.png"}`))
	}))
	defer srv.Close()

	client, err := generator.NewClient(srv.URL, "", time.Minute)
	require.NoError(t, err)
	s := NewSession(client, fastConfig())

	require.NoError(t, s.Submit(context.Background()))
	first, err := url.Parse(s.Snapshot().ImageURL)
	require.NoError(t, err)
	require.NoError(t, s.Submit(context.Background()))
	second, err := url.Parse(s.Snapshot().ImageURL)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(first.Path, "/images/abc123.png"))
	assert.NotEmpty(t, first.Query().Get("t"))
	assert.NotEqual(t, first.Query().Get("t"), second.Query().Get("t"))
}

func TestSessionTransportFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client, err := generator.NewClient("http://"+addr, "", time.Minute)
	require.NoError(t, err)
	s := NewSession(client, fastConfig())

	err = s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, generator.KindTransport, generator.KindOf(err))

	f := s.Snapshot()
	assert.Contains(t, f.Error, "connection refused")
	assert.Empty(t, f.ImageURL)
	assert.False(t, f.Loading)
}
