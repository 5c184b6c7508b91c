package server

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avetra/backoffice/internal/agent"
	config "github.com/avetra/backoffice/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the back-office agent",
		Long:  `Start the back-office agent: opens the database, applies migrations and runs the backup scheduler until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			return agent.Serve(context.Background())
		},
	}

	return cmd
}
