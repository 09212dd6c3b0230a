// Package loader runs world decoding on a background goroutine while callers
// poll progress.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

// ErrBusy is returned when a load is started while another is in flight.
var ErrBusy = errors.New("loader: load already in progress")

// Status is a snapshot of the loader state.
type Status struct {
	Source  string
	Message string
	Loading bool
	Loaded  bool
	Failed  bool
	Err     error
}

// Loader runs at most one world load at a time.
//
// The world is published together with the Loaded flag under the same lock,
// so a caller that observes Loaded always sees a fully decoded world.
type Loader struct {
	dec *wld.Decoder
	log *zap.Logger

	mu      sync.Mutex
	status  Status
	world   *wld.World
	elapsed time.Duration
	done    chan struct{}
}

// New creates a loader around dec. A nil logger discards output.
func New(dec *wld.Decoder, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{dec: dec, log: log}
}

// Load starts decoding the file at path in the background.
func (l *Loader) Load(path string) error {
	return l.start(path, func(progress func(string)) (*wld.World, error) {
		return l.dec.DecodeFile(path, progress)
	})
}

// LoadBytes starts decoding data in the background. name labels the source.
func (l *Loader) LoadBytes(name string, data []byte) error {
	return l.start(name, func(progress func(string)) (*wld.World, error) {
		inflated, err := wld.Inflate(data)
		if err != nil {
			return &wld.World{Failed: true}, &wld.LoadError{Stage: "opening world", Err: err}
		}
		return l.dec.Decode(inflated, progress)
	})
}

func (l *Loader) start(source string, decode func(func(string)) (*wld.World, error)) error {
	l.mu.Lock()
	if l.status.Loading {
		l.mu.Unlock()
		return ErrBusy
	}
	l.status = Status{Source: source, Message: "Opening " + source, Loading: true}
	l.world = nil
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	l.log.Debug("load started", zap.String("source", source))
	go l.run(source, decode, done)
	return nil
}

func (l *Loader) run(source string, decode func(func(string)) (*wld.World, error), done chan struct{}) {
	defer close(done)
	start := time.Now()

	w, err := decode(l.setMessage)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.elapsed = time.Since(start)
	l.status.Loading = false
	if err != nil {
		l.status.Failed = true
		l.status.Err = err
		l.status.Message = err.Error()
		l.log.Error("load failed", zap.String("source", source), zap.Error(err))
		return
	}
	l.world = w
	l.status.Loaded = true
	l.log.Info("load finished",
		zap.String("source", source),
		zap.Duration("elapsed", l.elapsed))
}

func (l *Loader) setMessage(msg string) {
	l.mu.Lock()
	l.status.Message = msg
	l.mu.Unlock()
}

// Status returns the current state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// World returns the loaded world, or nil until a load has succeeded.
func (l *Loader) World() *wld.World {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world
}

// Elapsed returns how long the last finished load took.
func (l *Loader) Elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elapsed
}

// Wait blocks until the current load finishes or ctx is done.
// It returns immediately when no load was started.
func (l *Loader) Wait(ctx context.Context) (*wld.World, error) {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil, nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world, l.status.Err
}
