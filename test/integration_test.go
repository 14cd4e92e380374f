package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/coordinator"
	"vmstore/pkg/node"
	"vmstore/pkg/protocol"
	"vmstore/pkg/shared"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startController(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	cfg := config.DefaultControllerConfig()
	cfg.Address = fmt.Sprintf("127.0.0.1:%d", port)
	cfg.ReapInterval = config.Duration(100 * time.Millisecond)
	cfg.OfflineTimeout = config.Duration(600 * time.Millisecond)
	cfg.FanoutTimeout = config.Duration(500 * time.Millisecond)
	cfg.FanoutDeadline = config.Duration(time.Second)

	coord := coordinator.New(&cfg, zaptest.NewLogger(t))
	errCh := make(chan error, 1)
	go func() { errCh <- coord.Start() }()

	select {
	case <-coord.Ready():
	case err := <-errCh:
		t.Fatalf("controller failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not start")
	}
	t.Cleanup(coord.Stop)
	return coord
}

func startNode(t *testing.T, id, controller string) *node.Node {
	t.Helper()
	cfg := config.DefaultNodeConfig()
	cfg.NodeID = id
	cfg.Port = 0
	cfg.DataDir = t.TempDir()
	cfg.ControllerAddress = controller
	cfg.HeartbeatInterval = config.Duration(100 * time.Millisecond)
	cfg.RequestTimeout = config.Duration(3 * time.Second)

	n := node.New(&cfg, zaptest.NewLogger(t))
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

func ownerIDs(t *testing.T, n *node.Node, name string) []string {
	t.Helper()
	locs, err := n.Locate(context.Background(), name)
	require.NoError(t, err)
	ids := make([]string, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.Id)
	}
	return ids
}

func TestThreeNodeReplication(t *testing.T) {
	coord := startController(t)
	vm1 := startNode(t, "vm1", coord.Addr())
	vm2 := startNode(t, "vm2", coord.Addr())
	vm3 := startNode(t, "vm3", coord.Addr())
	ctx := context.Background()

	t.Run("UploadGhostsOnPeers", func(t *testing.T) {
		require.NoError(t, vm1.Create("notes.txt", []byte("standup at 10")))
		_, err := vm1.Upload(ctx, "notes.txt")
		require.NoError(t, err)

		assert.Equal(t, []string{"notes.txt"}, vm2.Ghosts())
		assert.Equal(t, []string{"notes.txt"}, vm3.Ghosts())
		assert.Empty(t, vm1.Ghosts())
		assert.Equal(t, []string{"vm1"}, ownerIDs(t, vm2, "notes.txt"))
	})

	t.Run("GhostIsNotServed", func(t *testing.T) {
		_, err := vm2.Cat("notes.txt")
		assert.ErrorIs(t, err, node.ErrFileNotFound)
	})

	t.Run("DownloadMaterializes", func(t *testing.T) {
		require.NoError(t, vm2.Download(ctx, "notes.txt"))
		data, err := vm2.Cat("notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "standup at 10", string(data))
		assert.Empty(t, vm2.Ghosts())

		_, err = vm2.Upload(ctx, "notes.txt")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"vm1", "vm2"}, ownerIDs(t, vm3, "notes.txt"))
	})

	t.Run("SignOffHidesOwner", func(t *testing.T) {
		vm1.Stop()
		assert.Equal(t, []string{"vm2"}, ownerIDs(t, vm3, "notes.txt"))

		require.NoError(t, vm3.Download(ctx, "notes.txt"))
		data, err := vm3.Cat("notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "standup at 10", string(data))
	})

	t.Run("LastOwnerLeaving", func(t *testing.T) {
		vm2.Stop()
		assert.Empty(t, ownerIDs(t, vm3, "notes.txt"))

		files, err := vm3.ListCloud(ctx)
		require.NoError(t, err)
		assert.NotContains(t, files, "notes.txt")
		assert.ErrorIs(t, vm3.Download(ctx, "notes.txt"), node.ErrNoOwners)
	})
}

func TestSilentNodeIsReaped(t *testing.T) {
	coord := startController(t)
	vm1 := startNode(t, "vm1", coord.Addr())
	ctx := context.Background()

	// A node that registers and then never heartbeats or answers.
	deadPort, err := freeport.GetFreePort()
	require.NoError(t, err)
	conn, err := shared.ConnectToController(coord.Addr(), time.Second, 0)
	require.NoError(t, err)
	defer conn.Close()
	client := protocol.NewStorageControllerClient(conn)

	resp, err := client.RegisterNode(ctx, &protocol.NodeInfo{Id: "silent", Address: "127.0.0.1", Port: int32(deadPort)})
	require.NoError(t, err)
	require.True(t, resp.OK())
	resp, err = client.AnnounceFile(ctx, &protocol.FileAnnouncement{Id: "silent", Address: "127.0.0.1", Port: int32(deadPort), Filename: "orphan.txt"})
	require.NoError(t, err)
	require.True(t, resp.OK())

	require.NoError(t, vm1.Create("live.txt", []byte("x")))
	start := time.Now()
	_, err = vm1.Upload(ctx, "live.txt")
	require.NoError(t, err, "an unreachable peer must not fail the announcement")
	assert.Less(t, time.Since(start), 3*time.Second)

	require.Eventually(t, func() bool {
		files, err := vm1.ListCloud(ctx)
		return err == nil && len(files) == 1 && files[0] == "live.txt"
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		snap := coord.Snapshot()
		for _, n := range snap.Nodes {
			if n.ID == "silent" && n.Online {
				return false
			}
		}
		for _, f := range snap.Files {
			if f.Name == "orphan.txt" {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond, "silent node goes offline and its orphaned entry is evicted")
}
