package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vmstore/pkg/config"
	"vmstore/pkg/coordinator"
	"vmstore/pkg/node"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vmstore",
		Short: "Replicated file directory for a small cluster of storage nodes",
		Long: `A controller tracks which nodes are online and which files they hold.
Nodes announce files to the controller, which hints every other online node
that a copy exists; nodes then download the bytes directly from each other.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		controllerCmd(),
		nodeCmd(),
		clientCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise VMSTORE_* variables and
// an optional .env file.
func loadConfig(mode config.Mode) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadConfig(configFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Mode = mode
	return cfg, nil
}

func controllerCmd() *cobra.Command {
	var (
		address        string
		metricsAddress string
		reapInterval   time.Duration
		offlineTimeout time.Duration
		fanoutTimeout  time.Duration
		fanoutDeadline time.Duration
		fanoutWorkers  int
		report         bool
	)

	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Run the controller",
		Long:  `Start the controller that keeps the node registry and file directory and fans out duplicate hints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig(config.ModeController)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("address") {
				cfg.Controller.Address = address
			}
			if flags.Changed("metrics-address") {
				cfg.Controller.MetricsAddress = metricsAddress
			}
			if flags.Changed("reap-interval") {
				cfg.Controller.ReapInterval = config.Duration(reapInterval)
			}
			if flags.Changed("offline-timeout") {
				cfg.Controller.OfflineTimeout = config.Duration(offlineTimeout)
			}
			if flags.Changed("fanout-timeout") {
				cfg.Controller.FanoutTimeout = config.Duration(fanoutTimeout)
			}
			if flags.Changed("fanout-deadline") {
				cfg.Controller.FanoutDeadline = config.Duration(fanoutDeadline)
			}
			if flags.Changed("fanout-workers") {
				cfg.Controller.FanoutWorkers = fanoutWorkers
			}
			if err := cfg.Controller.Validate(); err != nil {
				return fmt.Errorf("invalid controller config: %w", err)
			}

			coord := coordinator.New(&cfg.Controller, logger)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			err = serveUntilSignal(sigChan, coord.Start, func() {
				logger.Info("Shutting down controller")
				coord.Stop()
			})
			if err != nil {
				return err
			}

			if report {
				fmt.Println(renderSnapshot(coord.Snapshot()))
			}
			return nil
		},
	}

	defaults := config.DefaultControllerConfig()
	cmd.Flags().StringVar(&address, "address", defaults.Address, "controller listening address")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "address for the Prometheus /metrics endpoint (disabled when empty)")
	cmd.Flags().DurationVar(&reapInterval, "reap-interval", defaults.ReapInterval.Std(), "how often stale nodes are swept")
	cmd.Flags().DurationVar(&offlineTimeout, "offline-timeout", defaults.OfflineTimeout.Std(), "heartbeat silence after which a node is offline")
	cmd.Flags().DurationVar(&fanoutTimeout, "fanout-timeout", defaults.FanoutTimeout.Std(), "per-peer timeout for duplicate hints")
	cmd.Flags().DurationVar(&fanoutDeadline, "fanout-deadline", defaults.FanoutDeadline.Std(), "overall bound on the fan-out for one announcement")
	cmd.Flags().IntVar(&fanoutWorkers, "fanout-workers", defaults.FanoutWorkers, "peers notified concurrently per announcement")
	cmd.Flags().BoolVar(&report, "report", false, "print the final registry and directory on shutdown")

	return cmd
}

func nodeCmd() *cobra.Command {
	var (
		nodeID            string
		host              string
		port              int
		controllerAddress string
		dataDir           string
		heartbeatInterval time.Duration
		interactive       bool
	)

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a storage node",
		Long:  `Start a storage node that registers with the controller and serves its files to peers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zapcore.InfoLevel
			if verbose {
				level = zapcore.DebugLevel
			} else if interactive {
				// Keep the shell readable.
				level = zapcore.WarnLevel
			}
			logger := newLogger(level)
			defer logger.Sync()

			cfg, err := loadConfig(config.ModeNode)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("node-id") {
				cfg.Node.NodeID = nodeID
			}
			if flags.Changed("host") {
				cfg.Node.Host = host
			}
			if flags.Changed("port") {
				cfg.Node.Port = port
			}
			if flags.Changed("controller") {
				cfg.Node.ControllerAddress = controllerAddress
			}
			if flags.Changed("data-dir") {
				cfg.Node.DataDir = dataDir
			}
			if flags.Changed("heartbeat-interval") {
				cfg.Node.HeartbeatInterval = config.Duration(heartbeatInterval)
			}
			if err := cfg.Node.Validate(); err != nil {
				return fmt.Errorf("invalid node config: %w", err)
			}

			storageNode := node.New(&cfg.Node, logger)

			if interactive {
				return runInteractive(storageNode, logger)
			}

			logger.Info("Starting storage node",
				zap.String("node_id", cfg.Node.NodeID),
				zap.String("controller", cfg.Node.ControllerAddress))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			return serveUntilSignal(sigChan, storageNode.Start, func() {
				logger.Info("Shutting down storage node")
				storageNode.Stop()
			})
		},
	}

	defaults := config.DefaultNodeConfig()
	cmd.Flags().StringVar(&nodeID, "node-id", "", "unique node identifier")
	cmd.Flags().StringVar(&host, "host", defaults.Host, "address peers use to reach this node")
	cmd.Flags().IntVar(&port, "port", defaults.Port, "peer service port")
	cmd.Flags().StringVar(&controllerAddress, "controller", defaults.ControllerAddress, "controller address")
	cmd.Flags().StringVar(&dataDir, "data-dir", defaults.DataDir, "directory for local files")
	cmd.Flags().DurationVar(&heartbeatInterval, "heartbeat-interval", defaults.HeartbeatInterval.Std(), "interval between heartbeats")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open a node shell on stdin")

	return cmd
}

// runInteractive serves the node in the background and drives it from a
// shell until exit or EOF.
// serveUntilSignal runs start until a signal arrives, then runs stop. Start
// returns as soon as the gRPC server stops, which is partway through stop,
// so the call waits for stop to finish before returning.
func serveUntilSignal(sig <-chan os.Signal, start func() error, stop func()) error {
	stopped := make(chan struct{})
	go func() {
		<-sig
		stop()
		close(stopped)
	}()

	if err := start(); err != nil {
		return err
	}
	<-stopped
	return nil
}

func runInteractive(n *node.Node, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- n.Start() }()

	select {
	case <-n.Ready():
	case err := <-errCh:
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		n.Stop()
		os.Exit(0)
	}()

	sh := newShell(n, os.Stdin, os.Stdout)
	err := sh.Run()
	n.Stop()
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, os.ErrClosed) {
		logger.Warn("Peer service exited with error", zap.Error(serveErr))
	}
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vmstore v%s\n", version)
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	if verbose {
		return newLogger(zapcore.DebugLevel)
	}
	return newLogger(zapcore.InfoLevel)
}

func newLogger(level zapcore.Level) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}
