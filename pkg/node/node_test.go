package node

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/protocol"
	"vmstore/pkg/storage"
	"vmstore/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockController answers the control-plane RPCs a node issues and records
// what it received.
type mockController struct {
	protocol.UnimplementedStorageControllerServer

	mu         sync.Mutex
	registered []*protocol.NodeInfo
	heartbeats int
	offline    []string
	announced  []*protocol.FileAnnouncement
	locations  map[string][]*protocol.NodeLocation
	files      []string
	forget     bool
}

func (m *mockController) RegisterNode(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, req)
	m.forget = false
	return &protocol.Response{Message: "Node " + req.Id + " registered successfully", Status: protocol.StatusOK}, nil
}

func (m *mockController) Heartbeat(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
	if m.forget {
		return &protocol.Response{Message: "Heartbeat received", Status: protocol.StatusNotFound}, nil
	}
	return &protocol.Response{Message: "Heartbeat received", Status: protocol.StatusOK}, nil
}

func (m *mockController) SetOffline(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = append(m.offline, req.Id)
	return &protocol.Response{Message: "Node " + req.Id + " set offline", Status: protocol.StatusOK}, nil
}

func (m *mockController) AnnounceFile(ctx context.Context, req *protocol.FileAnnouncement) (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announced = append(m.announced, req)
	return &protocol.Response{Message: "File " + req.Filename + " announced by " + req.Id, Status: protocol.StatusOK}, nil
}

func (m *mockController) GetFileLocations(ctx context.Context, req *protocol.FileName) (*protocol.NodeLocationList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &protocol.NodeLocationList{Nodes: append([]*protocol.NodeLocation(nil), m.locations[req.Filename]...)}, nil
}

func (m *mockController) ListFiles(ctx context.Context, req *protocol.NodeInfo) (*protocol.FileList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &protocol.FileList{Filenames: m.files}, nil
}

func (m *mockController) setLocations(name string, owners ...*Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locations == nil {
		m.locations = make(map[string][]*protocol.NodeLocation)
	}
	for _, o := range owners {
		m.locations[name] = append(m.locations[name], &protocol.NodeLocation{
			Id: string(o.nodeID), Address: o.host, Port: int32(o.port),
		})
	}
}

func startMockController(t *testing.T) (*mockController, string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mock := &mockController{}
	server := grpc.NewServer()
	protocol.RegisterStorageControllerServer(server, mock)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	return mock, lis.Addr().String()
}

func testNodeConfig(t *testing.T, id, controller string) *config.NodeConfig {
	cfg := config.DefaultNodeConfig()
	cfg.NodeID = id
	cfg.Port = 0
	cfg.DataDir = t.TempDir()
	cfg.ControllerAddress = controller
	cfg.HeartbeatInterval = config.Duration(time.Hour)
	cfg.RequestTimeout = config.Duration(5 * time.Second)
	return &cfg
}

func startNode(t *testing.T, id, controller string) *Node {
	t.Helper()
	n := New(testNodeConfig(t, id, controller), zaptest.NewLogger(t))

	errCh := make(chan error, 1)
	go func() { errCh <- n.Start() }()
	select {
	case <-n.Ready():
	case err := <-errCh:
		t.Fatalf("node %s failed to start: %v", id, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("node %s did not start", id)
	}
	t.Cleanup(n.Stop)
	return n
}

func TestNodeRegistersOnStart(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)

	mock.mu.Lock()
	defer mock.mu.Unlock()
	require.Len(t, mock.registered, 1)
	assert.Equal(t, "vm1", mock.registered[0].Id)
	assert.Equal(t, "127.0.0.1", mock.registered[0].Address)
	assert.NotZero(t, mock.registered[0].Port, "the bound port is registered, not 0")
	assert.Equal(t, int32(n.port), mock.registered[0].Port)
}

func TestStopSendsSetOffline(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)

	n.Stop()
	n.Stop()

	mock.mu.Lock()
	defer mock.mu.Unlock()
	assert.Equal(t, []string{"vm1"}, mock.offline)
}

func TestNotifyDuplicateRecordsGhost(t *testing.T) {
	n := New(testNodeConfig(t, "vm2", "127.0.0.1:1"), zaptest.NewLogger(t))

	resp, err := n.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm1", Filename: "notes.txt"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "Replicated file notes.txt stored.", resp.Message)

	marker, err := os.ReadFile(filepath.Join(n.store.Dir(), storage.GhostPrefix+"notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Replicate file: notes.txt from vm1\n", string(marker))

	assert.Equal(t, types.ReplicaGhosted, n.store.State("notes.txt"))
	assert.Equal(t, []string{"notes.txt"}, n.Ghosts())
	assert.Empty(t, n.LocalFiles())

	_, err = n.DownloadFile(context.Background(), &protocol.FileDownloadRequest{Filename: "notes.txt"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "File not found on node", status.Convert(err).Message())
}

func TestNotifyDuplicateValidation(t *testing.T) {
	n := New(testNodeConfig(t, "vm2", "127.0.0.1:1"), zaptest.NewLogger(t))

	resp, err := n.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm1"})
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusInvalidRequest, resp.Status)

	resp, err = n.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm1", Filename: "../escape"})
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusInvalidRequest, resp.Status)
	assert.Empty(t, n.Ghosts())
}

func TestNotifyDuplicateKeepsHeldBytes(t *testing.T) {
	n := New(testNodeConfig(t, "vm2", "127.0.0.1:1"), zaptest.NewLogger(t))
	require.NoError(t, n.Create("notes.txt", []byte("mine")))

	resp, err := n.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm1", Filename: "notes.txt"})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	content, err := n.DownloadFile(context.Background(), &protocol.FileDownloadRequest{Filename: "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mine"), content.Content)
	assert.Empty(t, n.Ghosts())
}

func TestLocalFileOperations(t *testing.T) {
	n := New(testNodeConfig(t, "vm1", "127.0.0.1:1"), zaptest.NewLogger(t))

	require.NoError(t, n.Create("a.txt", []byte("hello")))
	assert.ErrorIs(t, n.Create("a.txt", []byte("again")), storage.ErrExists)

	require.NoError(t, n.Modify("a.txt", []byte("hello world")))
	data, err := n.Cat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	assert.ErrorIs(t, n.Modify("missing.txt", nil), ErrFileNotFound)
	assert.Equal(t, []string{"a.txt"}, n.LocalFiles())

	require.NoError(t, n.Delete("a.txt"))
	assert.ErrorIs(t, n.Delete("a.txt"), ErrFileNotFound)
	_, err = n.Cat("a.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestUploadMissingFile(t *testing.T) {
	n := New(testNodeConfig(t, "vm1", "127.0.0.1:1"), zaptest.NewLogger(t))

	_, err := n.Upload(context.Background(), "absent.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestUploadAnnouncesFile(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)
	require.NoError(t, n.Create("notes.txt", []byte("hi")))

	msg, err := n.Upload(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "File notes.txt announced by vm1", msg)

	mock.mu.Lock()
	defer mock.mu.Unlock()
	require.Len(t, mock.announced, 1)
	assert.Equal(t, "notes.txt", mock.announced[0].Filename)
	assert.Equal(t, int32(n.port), mock.announced[0].Port)
}

func TestDownloadFromPeer(t *testing.T) {
	mock, addr := startMockController(t)
	owner := startNode(t, "vm1", addr)
	reader := startNode(t, "vm2", addr)

	require.NoError(t, owner.Create("notes.txt", []byte("meeting at noon")))
	mock.setLocations("notes.txt", owner)

	require.NoError(t, reader.Download(context.Background(), "notes.txt"))

	data, err := reader.Cat("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "meeting at noon", string(data))
	assert.Equal(t, []string{"notes.txt"}, reader.LocalFiles())
	assert.Equal(t, types.ReplicaMaterialized, reader.store.State("notes.txt"))
}

func TestDownloadReplacesGhost(t *testing.T) {
	mock, addr := startMockController(t)
	owner := startNode(t, "vm1", addr)
	reader := startNode(t, "vm2", addr)

	require.NoError(t, owner.Create("notes.txt", []byte("content")))
	_, err := reader.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm1", Filename: "notes.txt"})
	require.NoError(t, err)
	mock.setLocations("notes.txt", owner)

	require.NoError(t, reader.Download(context.Background(), "notes.txt"))
	assert.Empty(t, reader.Ghosts())
	_, err = os.Stat(filepath.Join(reader.store.Dir(), storage.GhostPrefix+"notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadNoOwners(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)

	assert.ErrorIs(t, n.Download(context.Background(), "missing.txt"), ErrNoOwners)

	require.NoError(t, n.Create("self.txt", []byte("x")))
	mock.setLocations("self.txt", n)
	assert.ErrorIs(t, n.Download(context.Background(), "self.txt"), ErrNoOwners)
}

func TestDownloadFromGhostOnlyPeer(t *testing.T) {
	mock, addr := startMockController(t)
	ghostHolder := startNode(t, "vm1", addr)
	reader := startNode(t, "vm2", addr)

	_, err := ghostHolder.NotifyDuplicate(context.Background(), &protocol.FileAnnouncement{Id: "vm3", Filename: "notes.txt"})
	require.NoError(t, err)
	mock.setLocations("notes.txt", ghostHolder)

	err = reader.Download(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.False(t, reader.store.Holds("notes.txt"))
}

// countingPeer serves DownloadFile for one file, or answers NotFound when
// it only holds a placeholder, and counts every request.
type countingPeer struct {
	protocol.UnimplementedNodeFileServiceServer

	mu      sync.Mutex
	calls   int
	content []byte
}

func (p *countingPeer) DownloadFile(ctx context.Context, req *protocol.FileDownloadRequest) (*protocol.FileContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.content == nil {
		return nil, status.Error(codes.NotFound, "File not found on node")
	}
	return &protocol.FileContent{Filename: req.Filename, Content: p.content}, nil
}

func (p *countingPeer) takeCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.calls
	p.calls = 0
	return calls
}

func startCountingPeer(t *testing.T, content []byte) (*countingPeer, *net.TCPAddr) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	peer := &countingPeer{content: content}
	server := grpc.NewServer()
	protocol.RegisterNodeFileServiceServer(server, peer)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	return peer, lis.Addr().(*net.TCPAddr)
}

func (m *mockController) addLocation(name, id string, addr *net.TCPAddr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locations == nil {
		m.locations = make(map[string][]*protocol.NodeLocation)
	}
	m.locations[name] = append(m.locations[name], &protocol.NodeLocation{
		Id: id, Address: addr.IP.String(), Port: int32(addr.Port),
	})
}

func TestDownloadContactsOnePeerPerAttempt(t *testing.T) {
	mock, addr := startMockController(t)
	ghostHolder, ghostAddr := startCountingPeer(t, nil)
	owner, ownerAddr := startCountingPeer(t, []byte("meeting at noon"))
	mock.addLocation("notes.txt", "vm1", ghostAddr)
	mock.addLocation("notes.txt", "vm3", ownerAddr)

	reader := startNode(t, "vm2", addr)

	var failures, successes int
	for i := 0; i < 40; i++ {
		err := reader.Download(context.Background(), "notes.txt")
		ghostCalls, ownerCalls := ghostHolder.takeCalls(), owner.takeCalls()
		require.Equal(t, 1, ghostCalls+ownerCalls, "attempt %d contacted %d peers", i, ghostCalls+ownerCalls)

		if err != nil {
			assert.ErrorIs(t, err, ErrFileNotFound)
			assert.Equal(t, 1, ghostCalls)
			assert.False(t, reader.store.Holds("notes.txt"))
			failures++
			continue
		}
		assert.Equal(t, 1, ownerCalls)
		require.NoError(t, reader.Delete("notes.txt"))
		successes++
	}

	assert.Positive(t, failures)
	assert.Positive(t, successes)
}

func TestDownloadFromUnreachablePeer(t *testing.T) {
	mock, addr := startMockController(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := lis.Addr().(*net.TCPAddr)
	require.NoError(t, lis.Close())
	mock.addLocation("notes.txt", "vm1", deadAddr)

	reader := startNode(t, "vm2", addr)

	err = reader.Download(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrPeerUnavailable)
	assert.False(t, reader.store.Holds("notes.txt"))
}

func TestHeartbeatReRegistersAndReannounces(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)

	require.NoError(t, n.Create("notes.txt", []byte("hi")))
	_, err := n.Upload(context.Background(), "notes.txt")
	require.NoError(t, err)

	require.NoError(t, n.sendHeartbeat())

	mock.mu.Lock()
	mock.forget = true
	mock.mu.Unlock()

	require.NoError(t, n.sendHeartbeat())

	mock.mu.Lock()
	defer mock.mu.Unlock()
	assert.Equal(t, 2, mock.heartbeats)
	assert.Len(t, mock.registered, 2)
	require.Len(t, mock.announced, 2)
	assert.Equal(t, "notes.txt", mock.announced[1].Filename)
}

func TestListCloud(t *testing.T) {
	mock, addr := startMockController(t)
	n := startNode(t, "vm1", addr)

	mock.mu.Lock()
	mock.files = []string{"a.txt", "b.txt"}
	mock.mu.Unlock()

	files, err := n.ListCloud(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}
