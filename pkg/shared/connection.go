package shared

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	// DefaultGRPCTimeout bounds dialing when the caller does not.
	DefaultGRPCTimeout = 10 * time.Second

	// DefaultMaxMessageSize matches the largest file a node will serve.
	DefaultMaxMessageSize = 16 * 1024 * 1024
)

// Dial opens a plaintext connection. Peers are not authenticated.
func Dial(ctx context.Context, address string, maxMessageSize int) (*grpc.ClientConn, error) {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	conn, err := grpc.DialContext(ctx, address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return conn, nil
}

// ConnectToController dials the directory service with a bounded timeout.
func ConnectToController(address string, timeout time.Duration, maxMessageSize int) (*grpc.ClientConn, error) {
	if timeout <= 0 {
		timeout = DefaultGRPCTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Dial(ctx, address, maxMessageSize)
}

// ConnectionPool caches one connection per peer endpoint.
type ConnectionPool struct {
	connections    map[string]*grpc.ClientConn
	mutex          sync.RWMutex
	maxMessageSize int
}

func NewConnectionPool(maxMessageSize int) *ConnectionPool {
	return &ConnectionPool{
		connections:    make(map[string]*grpc.ClientConn),
		maxMessageSize: maxMessageSize,
	}
}

// GetConnection returns a pooled connection or creates a new one.
func (p *ConnectionPool) GetConnection(ctx context.Context, address string) (*grpc.ClientConn, error) {
	p.mutex.RLock()
	conn, exists := p.connections[address]
	p.mutex.RUnlock()

	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Double-check after acquiring write lock
	conn, exists = p.connections[address]
	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	newConn, err := Dial(ctx, address, p.maxMessageSize)
	if err != nil {
		return nil, err
	}
	p.connections[address] = newConn
	return newConn, nil
}

// Discard closes and forgets the connection for address, so the next call
// dials again. Used after a peer call fails.
func (p *ConnectionPool) Discard(address string) {
	p.mutex.Lock()
	conn, exists := p.connections[address]
	delete(p.connections, address)
	p.mutex.Unlock()

	if exists {
		conn.Close()
	}
}

func (p *ConnectionPool) Len() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.connections)
}

// CloseAll closes all connections in the pool
func (p *ConnectionPool) CloseAll() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, conn := range p.connections {
		conn.Close()
	}
	p.connections = make(map[string]*grpc.ClientConn)
}
