// Package coordinator implements the controller: the node registry and
// file directory exposed over gRPC, the liveness reaper, and replication
// fan-out to peer nodes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"sync"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/directory"
	"vmstore/pkg/protocol"
	"vmstore/pkg/registry"
	"vmstore/pkg/shared"
	"vmstore/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Coordinator struct {
	protocol.UnimplementedStorageControllerServer

	address string
	logger  *zap.Logger
	config  *config.ControllerConfig
	now     func() time.Time

	registry  *registry.Registry
	directory *directory.Directory
	fanout    *FanOut
	pool      *shared.ConnectionPool

	metrics         *Metrics
	metricsRegistry *prometheus.Registry
	metricsServer   *http.Server

	server   *grpc.Server
	listener net.Listener
	ready    chan struct{}
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type options struct {
	now             func() time.Time
	notifier        PeerNotifier
	metricsRegistry *prometheus.Registry
}

type Option func(*options)

// WithClock replaces the wall clock for liveness and upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithNotifier replaces the gRPC peer notifier used by fan-out.
func WithNotifier(n PeerNotifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMetricsRegistry registers the coordinator's metrics on reg instead of
// a fresh private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.metricsRegistry = reg
	}
}

func New(cfg *config.ControllerConfig, logger *zap.Logger, opts ...Option) *Coordinator {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metricsRegistry == nil {
		o.metricsRegistry = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	reg := registry.New(registry.WithClock(o.now))
	dir := directory.New(reg, directory.WithClock(o.now))
	pool := shared.NewConnectionPool(shared.DefaultMaxMessageSize)
	metrics := NewMetrics(o.metricsRegistry)

	notifier := o.notifier
	if notifier == nil {
		notifier = NewGRPCNotifier(pool)
	}

	return &Coordinator{
		address:         cfg.Address,
		logger:          logger,
		config:          cfg,
		now:             o.now,
		registry:        reg,
		directory:       dir,
		fanout:          NewFanOut(notifier, cfg.FanoutWorkers, cfg.FanoutTimeout.Std(), cfg.FanoutDeadline.Std(), logger, metrics),
		pool:            pool,
		metrics:         metrics,
		metricsRegistry: o.metricsRegistry,
		ready:           make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start binds the listener, launches the reaper and serves until Stop is
// called.
func (c *Coordinator) Start() error {
	listener, err := net.Listen("tcp", c.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.address, err)
	}
	c.listener = listener

	c.server = grpc.NewServer(
		grpc.UnaryInterceptor(c.unaryInterceptor),
		grpc.MaxRecvMsgSize(shared.DefaultMaxMessageSize),
	)
	protocol.RegisterStorageControllerServer(c.server, c)

	if c.config.OfflineTimeout.Std() <= c.config.ReapInterval.Std() {
		c.logger.Warn("Offline timeout does not exceed reap interval; nodes may flap offline",
			zap.Duration("offline_timeout", c.config.OfflineTimeout.Std()),
			zap.Duration("reap_interval", c.config.ReapInterval.Std()))
	}

	if c.config.MetricsAddress != "" {
		c.startMetricsServer(c.config.MetricsAddress)
	}

	c.wg.Add(1)
	go c.reapLoop()

	c.logger.Info("Controller starting",
		zap.String("address", listener.Addr().String()),
		zap.Duration("reap_interval", c.config.ReapInterval.Std()),
		zap.Duration("offline_timeout", c.config.OfflineTimeout.Std()))

	close(c.ready)
	return c.server.Serve(listener)
}

func (c *Coordinator) startMetricsServer(address string) {
	c.metricsServer = &http.Server{
		Addr:              address,
		Handler:           MetricsHandler(c.metricsRegistry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		c.logger.Info("Metrics server starting", zap.String("address", address))
		if err := c.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

// Ready is closed once the listener is bound.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Addr returns the bound listener address, or the configured address
// before Start.
func (c *Coordinator) Addr() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.address
}

func (c *Coordinator) Stop() {
	c.cancel()

	if c.server != nil {
		c.server.GracefulStop()
	}
	c.wg.Wait()

	if c.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		c.metricsServer.Shutdown(ctx)
		cancel()
	}

	c.pool.CloseAll()
	c.logger.Info("Controller stopped")
}

// Metrics exposes the registry the coordinator reports into.
func (c *Coordinator) Metrics() *prometheus.Registry {
	return c.metricsRegistry
}

func (c *Coordinator) unaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	method := path.Base(info.FullMethod)
	c.metrics.RPCRequests.WithLabelValues(method).Inc()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic in RPC handler",
				zap.String("method", method),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = status.Errorf(codes.Internal, "internal error handling %s", method)
		}
	}()

	return handler(ctx, req)
}

func (c *Coordinator) refreshGauges() {
	registered, online := c.registry.Counts()
	c.metrics.NodesRegistered.Set(float64(registered))
	c.metrics.NodesOnline.Set(float64(online))
	c.metrics.FilesTracked.Set(float64(c.directory.Len()))
	c.metrics.FilesVisible.Set(float64(len(c.directory.ListVisible())))
}

func (c *Coordinator) timestamp() string {
	return c.now().Format(types.TimeFormat)
}

// Snapshot is a point-in-time view of the registry and directory for
// reporting. Files include entries no online owner currently serves.
type Snapshot struct {
	Nodes []types.NodeRecord
	Files []types.FileEntry
}

func (c *Coordinator) Snapshot() Snapshot {
	return Snapshot{
		Nodes: c.registry.Snapshot(),
		Files: c.directory.Entries(),
	}
}
