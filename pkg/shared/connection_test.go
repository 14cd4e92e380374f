package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/connectivity"
)

func TestConnectionPoolReuse(t *testing.T) {
	pool := NewConnectionPool(0)
	defer pool.CloseAll()

	ctx := context.Background()
	// Dialing is lazy, no server is required to obtain a connection.
	a, err := pool.GetConnection(ctx, "127.0.0.1:1")
	require.NoError(t, err)
	b, err := pool.GetConnection(ctx, "127.0.0.1:1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = pool.GetConnection(ctx, "127.0.0.1:2")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())
}

func TestConnectionPoolDiscard(t *testing.T) {
	pool := NewConnectionPool(0)
	defer pool.CloseAll()

	ctx := context.Background()
	a, err := pool.GetConnection(ctx, "127.0.0.1:1")
	require.NoError(t, err)

	pool.Discard("127.0.0.1:1")
	assert.Equal(t, connectivity.Shutdown, a.GetState())
	assert.Equal(t, 0, pool.Len())

	b, err := pool.GetConnection(ctx, "127.0.0.1:1")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	// Discarding an unknown address is a no-op.
	pool.Discard("127.0.0.1:9")
}

func TestCloseAll(t *testing.T) {
	pool := NewConnectionPool(0)
	a, err := pool.GetConnection(context.Background(), "127.0.0.1:1")
	require.NoError(t, err)

	pool.CloseAll()
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, connectivity.Shutdown, a.GetState())
}
