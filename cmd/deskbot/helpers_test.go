// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hosteldesk/deskbot/internal/config"
	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/stretchr/testify/require"
)

const (
	vacantQuery = "SELECT name, block FROM rooms WHERE vacant = 1 ORDER BY name"
	feesAnswer  = "A single room costs 52000 per year."
	quietAnswer = "Quiet hours start at 10pm. [1]\nSources: [1]"
)

// scriptedProvider answers by prompt shape, standing in for a real model.
type scriptedProvider struct{}

var _ provider.Provider = scriptedProvider{}

func (scriptedProvider) Name() string                   { return "openai" }
func (scriptedProvider) Available(context.Context) bool { return true }
func (scriptedProvider) Close() error                   { return nil }

func (scriptedProvider) Complete(_ context.Context, req provider.Request) (*provider.Response, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	var text string
	switch {
	case strings.Contains(prompt, "BI assistant"):
		text = "```sql\n" + vacantQuery + "\n```"
	case strings.Contains(prompt, "Use ONLY the JSON below"):
		text = feesAnswer
	case strings.Contains(prompt, "CONTEXT (top relevant passages)"):
		text = quietAnswer
	default:
		text = "I am not sure."
	}
	return &provider.Response{Text: text, Model: req.Model}, nil
}

// withScriptedProvider replaces the openai factory for the test.
func withScriptedProvider(t *testing.T) {
	t.Helper()
	orig := builtinProviderFactories["openai"]
	builtinProviderFactories["openai"] = func(config.ProviderConfig) (provider.Provider, error) {
		return scriptedProvider{}, nil
	}
	t.Cleanup(func() { builtinProviderFactories["openai"] = orig })
}

// keepDefaultLogger restores the process logger that command runs replace.
func keepDefaultLogger(t *testing.T) {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
}

type fixture struct {
	dir        string
	configPath string
	dbPath     string
}

// newFixture lays out a knowledge base, a hostel database, a schema summary
// and a config file pointing at all of them.
func newFixture(t *testing.T, vectorBackend string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, configPath: filepath.Join(dir, "deskbot.yaml"), dbPath: filepath.Join(dir, "hostel.db")}

	kb := filepath.Join(dir, "knowledge_base")
	require.NoError(t, os.MkdirAll(kb, 0o755))
	writeFile(t, filepath.Join(kb, "fees.json"), `{"single": {"annual": "52000"}, "deposit": "5000"}`)
	writeFile(t, filepath.Join(kb, "mess_info.json"), `{"breakfast": "7:30 to 9:00", "dinner": "19:30 to 21:30"}`)
	writeFile(t, filepath.Join(kb, "policies.yaml"), "quiet_hours: Quiet hours start at 10pm every night.\n")

	writeFile(t, filepath.Join(dir, "schema_pretext.txt"), "rooms(name TEXT, block TEXT, vacant INTEGER)")

	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE rooms (name TEXT, block TEXT, vacant INTEGER);
		INSERT INTO rooms VALUES ('A-101', 'A', 1), ('A-102', 'A', 0), ('B-201', 'B', 1);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	writeFile(t, f.configPath, fmt.Sprintf(`
server:
  listen: 127.0.0.1:18099
providers:
  openai:
    api_key: test-key-not-real
models:
  default: openai/gpt-4o-mini
embedding:
  provider: hash
  dimensions: 128
vector:
  backend: %s
  path: %s
knowledge:
  dir: %s
  min_relevance: 0.2
data:
  driver: sqlite
  dsn: %s
  schema_summary: %s
`, vectorBackend, filepath.Join(dir, "vectors.db"), kb, f.dbPath, filepath.Join(dir, "schema_pretext.txt")))

	return f
}

func (f fixture) load(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(f.configPath)
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	keepDefaultLogger(t)

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
