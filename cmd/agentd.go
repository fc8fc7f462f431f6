package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/agentserver"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/lanes"
	"github.com/nextlevelbuilder/goclaw/internal/turnstate"
)

// agentdCmd runs the C5 Agent Server as its own process: a Unix-socket
// NDJSON peer of worker.Worker, for deployments that split turn execution
// out of the WebSocket-facing gateway binary.
func agentdCmd() *cobra.Command {
	var agentName string
	cmd := &cobra.Command{
		Use:   "agentd",
		Short: "Run the agent daemon (Unix-socket NDJSON turn server)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
			runAgentServer(cfg, agentName)
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", "default", "agent profile to serve")
	return cmd
}

func runAgentServer(cfg *config.Config, agentName string) {
	loop, _, _ := bootstrapStandaloneAgent(cfg, agentName)

	lanesMgr := lanes.NewManager(lanes.DefaultConfig())

	turnsDir := config.ExpandHome("~/.goclaw/turns")
	turns, err := turnstate.NewStore(turnsDir, turnstate.DefaultTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening turn state store: %v\n", err)
		os.Exit(1)
	}
	turns.StartCleanupTask()
	defer turns.Stop()

	socketPath := config.ExpandHome(cfg.AgentServer.SocketPath)
	if socketPath == "" {
		socketPath = config.ExpandHome("~/.goclaw/run/agentd.sock")
	}
	srv := agentserver.New(loop, lanesMgr, turns, agentserver.Config{
		SocketPath:    socketPath,
		MaxConcurrent: cfg.AgentServer.MaxConcurrent,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("agentd: starting", "agent", agentName, "socket", socketPath)
	if err := srv.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running agent server: %v\n", err)
		os.Exit(1)
	}
}
