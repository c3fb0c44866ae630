package main

import (
	"context"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/mcp"
)

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve your workout history to an AI assistant over MCP (stdio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			s := mcp.New(a.historyClient(sess.Token), a.catalog, Version, a.log)
			a.log.Info("serving MCP on stdio", "user", sess.User.ID, "history", a.cfg.Backend.HistoryURL)
			return mcpserver.ServeStdio(s, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
				return mcp.WithUserID(ctx, sess.User.ID)
			}))
		},
	}
}
