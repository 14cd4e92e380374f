package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/coordinator"
	"vmstore/pkg/node"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func runController(t *testing.T, address string) *coordinator.Coordinator {
	t.Helper()
	cfg := config.DefaultControllerConfig()
	cfg.Address = address
	cfg.ReapInterval = config.Duration(100 * time.Millisecond)
	cfg.OfflineTimeout = config.Duration(time.Second)

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
	return coord
}

// TestNodeRecoversAfterControllerRestart checks that a node re-registers
// and re-announces its uploads when a fresh controller takes over the same
// address.
func TestNodeRecoversAfterControllerRestart(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	first := runController(t, address)

	cfg := config.DefaultNodeConfig()
	cfg.NodeID = "vm1"
	cfg.Port = 0
	cfg.DataDir = t.TempDir()
	cfg.ControllerAddress = address
	cfg.HeartbeatInterval = config.Duration(100 * time.Millisecond)
	cfg.RequestTimeout = config.Duration(2 * time.Second)

	n := node.New(&cfg, zaptest.NewLogger(t))
	go n.Start()
	select {
	case <-n.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("node did not start")
	}
	t.Cleanup(n.Stop)

	ctx := context.Background()
	require.NoError(t, n.Create("report.txt", []byte("q3")))
	_, err = n.Upload(ctx, "report.txt")
	require.NoError(t, err)

	first.Stop()
	second := runController(t, address)
	t.Cleanup(second.Stop)

	require.Eventually(t, func() bool {
		files, err := n.ListCloud(ctx)
		return err == nil && len(files) == 1 && files[0] == "report.txt"
	}, 15*time.Second, 100*time.Millisecond)
}
