// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
	"github.com/hosteldesk/deskbot/internal/server"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/deskbot.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI document written to %s\n", outPath)
}

// generateSpec registers every route on a server backed by stubs and
// returns the OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, server.Services{
		Chat:  stubChat{},
		Query: stubQuery{},
	})
	if err != nil {
		return nil, deskerr.Errorf(deskerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Stubs are never called during generation.

type stubChat struct{}

func (stubChat) Route(context.Context, router.Request) router.Envelope { return router.Envelope{} }

type stubQuery struct{}

func (stubQuery) Run(context.Context, string, string) *query.Result { return &query.Result{} }
