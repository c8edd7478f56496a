// Package limits enforces the resource ceilings every engine operation runs under.
package limits

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"codefacts/internal/config"
	"codefacts/internal/errors"
	"codefacts/internal/slogutil"
)

const defaultSampleInterval = 100 * time.Millisecond

// Limits holds the ceilings applied by a Limiter. Zero disables a ceiling.
type Limits struct {
	MaxFileSizeBytes int64
	MaxFileCount     int
	Timeout          time.Duration
	MaxHeapBytes     uint64
	// SampleInterval is how often the heap watcher reads memory stats
	SampleInterval time.Duration
}

// FromConfig builds Limits from the merged configuration
func FromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxFileSizeBytes: cfg.Limits.MaxFileSizeBytes,
		MaxFileCount:     cfg.Limits.MaxFileCount,
		Timeout:          cfg.Timeout(),
		MaxHeapBytes:     uint64(cfg.Limits.MaxHeapBytes),
		SampleInterval:   defaultSampleInterval,
	}
}

// Limiter wraps operations with a wall-clock timeout and a sampled heap ceiling
type Limiter struct {
	limits   Limits
	readHeap func() uint64
	logger   *slog.Logger
}

// NewLimiter creates a limiter for the given ceilings
func NewLimiter(limits Limits, logger *slog.Logger) *Limiter {
	if limits.SampleInterval <= 0 {
		limits.SampleInterval = defaultSampleInterval
	}
	return &Limiter{
		limits:   limits,
		readHeap: heapInUse,
		logger:   slogutil.OrDiscard(logger),
	}
}

// WithHeapReader replaces the heap sampler
func (l *Limiter) WithHeapReader(fn func() uint64) *Limiter {
	l.readHeap = fn
	return l
}

// Limits returns the configured ceilings
func (l *Limiter) Limits() Limits {
	return l.limits
}

// CheckFileCount fails once n crosses the file count ceiling
func (l *Limiter) CheckFileCount(n int) error {
	if l.limits.MaxFileCount > 0 && n > l.limits.MaxFileCount {
		return errors.Newf(errors.LimitExceeded, "too many files: %d > %d", n, l.limits.MaxFileCount).
			WithLimit("maxFileCount", l.limits.MaxFileCount, n)
	}
	return nil
}

// CheckFileSize fails when a file is larger than the size ceiling
func (l *Limiter) CheckFileSize(path string, size int64) error {
	if l.limits.MaxFileSizeBytes > 0 && size > l.limits.MaxFileSizeBytes {
		return errors.Newf(errors.LimitExceeded, "file too large: %d > %d bytes", size, l.limits.MaxFileSizeBytes).
			WithLimit("maxFileSizeBytes", l.limits.MaxFileSizeBytes, size).
			WithPath(path)
	}
	return nil
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs fn under the limiter. On a timeout or heap breach fn's context is
// cancelled and Do returns a Resource error without waiting for fn to unwind.
func Do[T any](ctx context.Context, l *Limiter, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if l.limits.Timeout > 0 {
		timeoutErr := errors.Newf(errors.Timeout, "%s exceeded %s", op, l.limits.Timeout).
			WithLimit("timeoutMs", l.limits.Timeout.Milliseconds(), nil)
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeoutCause(runCtx, l.limits.Timeout, timeoutErr)
		defer cancelTimeout()
	}

	if l.limits.MaxHeapBytes > 0 {
		go l.watchHeap(runCtx, op, cancel)
	}

	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(runCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if cause := resourceCause(runCtx); cause != nil {
				return zero, cause
			}
			return zero, out.err
		}
		return out.value, nil
	case <-runCtx.Done():
		if cause := resourceCause(runCtx); cause != nil {
			l.logger.Warn("operation abandoned", "op", op, "error", cause)
			return zero, cause
		}
		return zero, ctx.Err()
	}
}

func (l *Limiter) watchHeap(ctx context.Context, op string, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(l.limits.SampleInterval)
	defer ticker.Stop()

	for {
		if used := l.readHeap(); used > l.limits.MaxHeapBytes {
			cancel(errors.New(errors.MemoryExceeded,
				fmt.Sprintf("%s exceeded heap ceiling", op), nil).
				WithLimit("maxHeapBytes", l.limits.MaxHeapBytes, used))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// resourceCause returns the typed Resource error that cancelled ctx, if any
func resourceCause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if errors.IsKind(cause, errors.KindResource) {
		return cause
	}
	return nil
}

func heapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
