package cache

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of a cached fetch. When OK is false the fetch failed,
// Err says why, and FetchedAt is only the time of the attempt: it must not be
// read as a successful refresh.
type Result[T any] struct {
	Value     T
	OK        bool
	FetchedAt time.Time
	Err       error
}

// Recorder receives cache outcomes. Keys are passed whole; implementations
// derive their own labels.
type Recorder interface {
	Hit(key string)
	Miss(key string)
	Failure(key string, err error)
}

type noopRecorder struct{}

func (noopRecorder) Hit(string)            {}
func (noopRecorder) Miss(string)           {}
func (noopRecorder) Failure(string, error) {}

// Loader composes a Store with upstream fetch functions.
type Loader struct {
	store    Store
	recorder Recorder
	logger   logrus.FieldLogger
	now      func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRecorder reports hits, misses and failures to r.
func WithRecorder(r Recorder) LoaderOption {
	return func(l *Loader) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLoaderClock overrides the time source, for tests.
func WithLoaderClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader creates a Loader over store.
func NewLoader(store Store, opts ...LoaderOption) *Loader {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	l := &Loader{
		store:    store,
		recorder: noopRecorder{},
		logger:   discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Invalidate deletes keys from the underlying store.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := l.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Fetch returns the cached value for key, or calls fn and caches what it returns.
//
// With force set the entry is deleted before fn runs, so a failed refresh never
// serves the stale value. A failure of fn is never cached and never returned
// as an error: it comes back as a Result with OK false.
func Fetch[T any](ctx context.Context, l *Loader, key string, fn func(context.Context) (T, error), ttl time.Duration, force bool) Result[T] {
	log := l.logger.WithField("key", key)

	if force {
		if err := l.store.Delete(ctx, key); err != nil {
			log.WithError(err).Warn("failed to invalidate cache entry")
		}
	} else if ent, err := l.store.Get(ctx, key); err != nil {
		log.WithError(err).Warn("cache read failed, treating as miss")
	} else if ent != nil {
		var value T
		if err := json.Unmarshal(ent.Value, &value); err == nil {
			l.recorder.Hit(key)
			log.Debug("cache hit")
			return Result[T]{Value: value, OK: true, FetchedAt: ent.FetchedAt}
		}
		log.Warn("undecodable cache entry, refetching")
	}

	l.recorder.Miss(key)
	value, err := fn(ctx)
	fetchedAt := l.now()
	if err != nil {
		l.recorder.Failure(key, err)
		log.WithError(err).Debug("fetch failed")
		var zero T
		return Result[T]{Value: zero, FetchedAt: fetchedAt, Err: err}
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).Warn("failed to encode value for cache")
	} else if err := l.store.Set(ctx, key, data, fetchedAt, ttl); err != nil {
		log.WithError(err).Warn("failed to write cache entry")
	}
	return Result[T]{Value: value, OK: true, FetchedAt: fetchedAt}
}
