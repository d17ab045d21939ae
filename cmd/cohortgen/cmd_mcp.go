package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Start the MCP server (stdio transport)",
		Long: `Starts a Model Context Protocol server exposing cohortgen tools over
stdio: cohort_generate, cohort_validate, and cohort_stats. Intended to be
launched by an MCP client such as an agent runtime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")

			p, err := loadParams(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "cohortgen",
				Version: version,
				OutDir:  outDir,
				Params:  p,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return server.Run(ctx)
		},
	}
}
