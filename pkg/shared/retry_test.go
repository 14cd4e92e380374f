package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func fastRetrier(t *testing.T, attempts int) *Retrier {
	r := DefaultRetrier(zaptest.NewLogger(t))
	r.MaxAttempts = attempts
	r.BaseDelay = time.Millisecond
	r.MaxDelay = 5 * time.Millisecond
	return r
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastRetrier(t, 5).Do(context.Background(), "register", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	calls := 0
	rejected := errors.New("rejected")
	err := fastRetrier(t, 5).Do(context.Background(), "register", func(ctx context.Context) error {
		calls++
		return Permanent(rejected)
	})

	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, calls)
}

func TestRetrierGivesUp(t *testing.T) {
	calls := 0
	err := fastRetrier(t, 3).Do(context.Background(), "heartbeat", func(ctx context.Context) error {
		calls++
		return status.Error(codes.DeadlineExceeded, "slow")
	})

	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	assert.Equal(t, 3, calls)
}

func TestRetrierHonoursContext(t *testing.T) {
	r := fastRetrier(t, 100)
	r.BaseDelay = time.Hour
	r.MaxDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Do(ctx, "register", func(ctx context.Context) error {
		return status.Error(codes.Unavailable, "down")
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(codes.Unavailable, ""), true},
		{"deadline", status.Error(codes.DeadlineExceeded, ""), true},
		{"not found", status.Error(codes.NotFound, ""), false},
		{"invalid argument", status.Error(codes.InvalidArgument, ""), false},
		{"plain error", errors.New("dial failed"), true},
		{"permanent", Permanent(errors.New("no")), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
