// Package node runs a storage node: a local file store, the peer service
// other nodes download from, and the control-plane client that keeps the
// node registered with the controller.
package node

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/protocol"
	"vmstore/pkg/shared"
	"vmstore/pkg/storage"
	"vmstore/pkg/types"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrNoOwners        = errors.New("no online node holds this file")
	ErrNotRegistered   = errors.New("node not registered with controller")
	ErrPeerUnavailable = errors.New("peer unavailable")
)

type Node struct {
	protocol.UnimplementedNodeFileServiceServer

	nodeID types.NodeID
	host   string
	port   int
	logger *zap.Logger
	config *config.NodeConfig

	store *storage.LocalStore

	controllerAddress string
	controllerConn    *grpc.ClientConn
	controllerClient  protocol.StorageControllerClient

	peers   *shared.ConnectionPool
	retrier *shared.Retrier

	// uploaded holds names announced by this node, re-announced after a
	// re-registration.
	uploaded   map[string]struct{}
	uploadedMu sync.Mutex

	rng   *rand.Rand
	rngMu sync.Mutex

	server   *grpc.Server
	listener net.Listener
	ready    chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg *config.NodeConfig, logger *zap.Logger) *Node {
	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		nodeID:            types.NodeID(cfg.NodeID),
		host:              cfg.Host,
		port:              cfg.Port,
		logger:            logger.With(zap.String("node_id", cfg.NodeID)),
		config:            cfg,
		store:             storage.NewLocalStore(cfg.DataDir),
		controllerAddress: cfg.ControllerAddress,
		peers:             shared.NewConnectionPool(cfg.MaxMessageSize.Bytes()),
		retrier:           shared.DefaultRetrier(logger),
		uploaded:          make(map[string]struct{}),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		ready:             make(chan struct{}),
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start opens the local store, binds the peer service, registers with the
// controller and serves until Stop is called.
func (n *Node) Start() error {
	if err := n.store.Load(); err != nil {
		return fmt.Errorf("failed to load local store: %w", err)
	}

	bindAddr := net.JoinHostPort(n.host, strconv.Itoa(n.port))
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", bindAddr, err)
	}
	n.listener = listener
	// Port 0 asks the OS for a port; the controller must learn the real one.
	n.port = listener.Addr().(*net.TCPAddr).Port

	maxMsg := n.config.MaxMessageSize.Bytes()
	n.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.MaxSendMsgSize(maxMsg),
	)
	protocol.RegisterNodeFileServiceServer(n.server, n)

	if err := n.connectToController(); err != nil {
		listener.Close()
		return err
	}
	// The controller may still be starting; retry transient failures.
	err = n.retrier.Do(n.ctx, "register", func(ctx context.Context) error {
		return n.register(ctx)
	})
	if err != nil {
		listener.Close()
		n.controllerConn.Close()
		return fmt.Errorf("failed to register with controller: %w", err)
	}

	n.logger.Info("Node starting",
		zap.String("address", n.Endpoint()),
		zap.String("controller", n.controllerAddress),
		zap.String("data_dir", n.store.Dir()))

	n.wg.Add(1)
	go n.heartbeatLoop()

	close(n.ready)
	return n.server.Serve(listener)
}

// Stop tells the controller the node is leaving, then shuts down the
// heartbeat loop and the peer service. It is safe to call more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.cancel()
		n.wg.Wait()

		if n.controllerClient != nil {
			ctx, cancel := context.WithTimeout(context.Background(), n.config.RequestTimeout.Std())
			resp, err := n.controllerClient.SetOffline(ctx, n.nodeInfo())
			cancel()
			if err != nil {
				n.logger.Warn("Failed to notify controller of shutdown", zap.Error(err))
			} else {
				n.logger.Info("Node is offline", zap.String("message", resp.Message))
			}
		}

		if n.controllerConn != nil {
			n.controllerConn.Close()
		}
		if n.server != nil {
			n.server.GracefulStop()
		}
		n.peers.CloseAll()
	})
}

// Ready is closed once the node is registered and about to serve.
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

func (n *Node) ID() types.NodeID {
	return n.nodeID
}

// Endpoint is the host:port peers use to reach this node.
func (n *Node) Endpoint() string {
	return net.JoinHostPort(n.host, strconv.Itoa(n.port))
}

func (n *Node) Store() *storage.LocalStore {
	return n.store
}

func (n *Node) connectToController() error {
	conn, err := shared.ConnectToController(n.controllerAddress, n.config.RequestTimeout.Std(), n.config.MaxMessageSize.Bytes())
	if err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	n.controllerConn = conn
	n.controllerClient = protocol.NewStorageControllerClient(conn)
	return nil
}

func (n *Node) register(ctx context.Context) error {
	ctx, cancel := n.requestContext(ctx)
	defer cancel()

	resp, err := n.controllerClient.RegisterNode(ctx, n.nodeInfo())
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if !resp.OK() {
		return shared.Permanent(fmt.Errorf("registration rejected by controller: %s", resp.Message))
	}

	n.logger.Info("Registered with controller", zap.String("message", resp.Message))
	return nil
}

func (n *Node) nodeInfo() *protocol.NodeInfo {
	return &protocol.NodeInfo{
		Id:      string(n.nodeID),
		Address: n.host,
		Port:    int32(n.port),
	}
}

func (n *Node) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.config.RequestTimeout.Std())
}

func (n *Node) pick(locs []*protocol.NodeLocation) *protocol.NodeLocation {
	n.rngMu.Lock()
	defer n.rngMu.Unlock()
	return locs[n.rng.Intn(len(locs))]
}
