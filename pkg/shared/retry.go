package shared

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Retrier reruns an operation with exponential backoff and jitter while it
// fails with a retryable error.
type Retrier struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	Logger       *zap.Logger
}

func DefaultRetrier(logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		MaxAttempts:  5,
		BaseDelay:    200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		JitterFactor: 0.2,
		Logger:       logger,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The last error is returned.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := r.backoff(attempt)
		r.Logger.Debug("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}
	return lastErr
}

func (r *Retrier) backoff(attempt int) time.Duration {
	delay := float64(r.BaseDelay) * math.Pow(2, float64(attempt))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
	if delay < 0 {
		delay = float64(r.BaseDelay)
	}
	return time.Duration(delay)
}

// errPermanent marks an error as not worth retrying.
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

// Permanent wraps err so Retrier.Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errPermanent{err: err}
}

// IsRetryable reports whether err looks transient. Errors that are not gRPC
// statuses are treated as transient unless wrapped with Permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p errPermanent
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch st.Code() {
	case codes.Unavailable,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.DeadlineExceeded,
		codes.Unknown:
		return true
	default:
		return false
	}
}
