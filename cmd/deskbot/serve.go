// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"os"
	"os/signal"
	"syscall"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the deskbot HTTP server",
		Long:  "Load configuration, wire the router and serve /api/chat, /api/query, /health and /metrics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func (c *cli) runServe(cmd *cobra.Command) error {
	if err := c.v.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		return deskerr.Errorf(deskerr.CodeCLISetupFailure, "binding listen flag: %w", err)
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	desk, err := WireDesk(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = desk.Close() }()

	c.logger.Info("starting deskbot", "listen", cfg.Server.Listen, "version", version)
	return desk.Start(ctx)
}
