// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hosteldesk/deskbot/internal/router"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	queryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

func newAskCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Route one question and print the answer",
		Long:  "Route a single question through memory, the knowledge base, data queries and retrieval, the same way /api/chat does.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAsk(cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringP("session", "s", "cli", "session id for memory")
	cmd.Flags().Bool("debug", false, "include routing diagnostics")
	cmd.Flags().Bool("json", false, "print the raw response envelope as JSON")

	return cmd
}

func (c *cli) runAsk(cmd *cobra.Command, question string) error {
	if strings.TrimSpace(question) == "" {
		return deskerr.New(deskerr.CodeCLIInputInvalid, "question must not be empty")
	}
	session, _ := cmd.Flags().GetString("session")
	debug, _ := cmd.Flags().GetBool("debug")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := c.load()
	if err != nil {
		return err
	}

	desk, err := WireDesk(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = desk.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout(cfg))
	defer cancel()

	env := desk.Router.Route(ctx, router.Request{Message: question, SessionID: session, Debug: debug})

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return deskerr.Errorf(deskerr.CodeCLIRequestFailure, "encoding response: %w", err)
		}
		return nil
	}
	return renderEnvelope(cmd.OutOrStdout(), env)
}

// renderEnvelope prints env for a terminal.
func renderEnvelope(w io.Writer, env router.Envelope) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("deskbot") + dimStyle.Render(" · "+string(env.Kind)))
	sb.WriteString("\n")
	sb.WriteString(boxStyle.Render(env.Answer))
	sb.WriteString("\n")

	switch {
	case env.Data != nil:
		if env.Data.Query != "" {
			sb.WriteString(queryStyle.Render(env.Data.Query) + "\n")
		}
		if env.Data.Error != "" {
			sb.WriteString(errorStyle.Render(env.Data.Error) + "\n")
		} else if env.Data.Safe {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("%d rows", env.Data.RowCount)) + "\n")
		}
	case env.Info != nil:
		if line := sourceLine(env.Info); line != "" {
			sb.WriteString(dimStyle.Render(line) + "\n")
		}
	}

	if env.Debug != nil {
		sb.WriteString(dimStyle.Render("stage: "+string(env.Debug.Stage)) + "\n")
		if env.Debug.MemoryContext != "" {
			sb.WriteString(dimStyle.Render(strings.TrimRight(env.Debug.MemoryContext, "\n")) + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func sourceLine(info *router.Informational) string {
	parts := []string{}
	if info.Source != "" {
		parts = append(parts, "source: "+info.Source)
	}
	if info.Topic != "" {
		parts = append(parts, "topic: "+info.Topic)
	}
	for _, ref := range info.Sources {
		parts = append(parts, fmt.Sprintf("[%d] %s", ref.Index, ref.Source))
	}
	return strings.Join(parts, "  ")
}
