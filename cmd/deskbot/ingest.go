// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"fmt"

	"github.com/hosteldesk/deskbot/internal/knowledge"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/cobra"
)

func newIngestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index the knowledge base for retrieval",
		Long:  "Flatten every JSON and YAML file in the knowledge directory into passages, embed them and upsert them into the knowledge collection.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runIngest(cmd)
		},
	}

	cmd.Flags().String("dir", "", "override the knowledge directory")

	return cmd
}

func (c *cli) runIngest(cmd *cobra.Command) error {
	if err := c.v.BindPFlag("knowledge.dir", cmd.Flags().Lookup("dir")); err != nil {
		return deskerr.Errorf(deskerr.CodeCLISetupFailure, "binding dir flag: %w", err)
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}

	docs, err := knowledge.LoadDir(cfg.Knowledge.Dir)
	if err != nil {
		return err
	}

	desk, err := WireDesk(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = desk.Close() }()

	n, err := desk.Index.Ingest(cmd.Context(), docs)
	if err != nil {
		return deskerr.Wrapf(err, deskerr.CodeCLIRequestFailure, "indexed %d passages before failing", n)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d passages from %d documents into %q.\n",
		n, len(docs), cfg.Vector.KnowledgeCollection)
	return err
}
