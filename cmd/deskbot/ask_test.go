// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hosteldesk/deskbot/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCommand_RendersKnowledgeAnswer(t *testing.T) {
	withScriptedProvider(t)
	f := newFixture(t, "memory")

	out, _, err := run(t, "", "ask", "what", "time", "is", "breakfast", "in", "the", "mess?", "--config", f.configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "deskbot")
	assert.Contains(t, out, feesAnswer)
	assert.Contains(t, out, "topic: mess_info")
}

func TestAskCommand_JSONDataQuery(t *testing.T) {
	withScriptedProvider(t)
	f := newFixture(t, "memory")

	out, _, err := run(t, "", "ask", "how many vacant rooms are there?", "--config", f.configPath, "--json", "--debug")
	require.NoError(t, err)

	var env router.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.NoError(t, env.Validate())
	assert.Equal(t, router.KindDataQuery, env.Kind)
	assert.Equal(t, vacantQuery, env.Data.Query)
	require.NotNil(t, env.Debug)
	assert.Equal(t, router.StageData, env.Debug.Stage)
}

func TestAskCommand_BlankQuestion(t *testing.T) {
	withScriptedProvider(t)
	f := newFixture(t, "memory")

	_, _, err := run(t, "", "ask", "   ", "--config", f.configPath)
	require.Error(t, err)
}

func TestIngestThenAsk_RetrievalCitesSources(t *testing.T) {
	withScriptedProvider(t)
	f := newFixture(t, "sqlite")

	out, _, err := run(t, "", "ingest", "--config", f.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "from 3 documents")
	assert.Contains(t, out, `"hostel_kb"`)

	out, _, err = run(t, "", "ask", "when do quiet hours start?", "--config", f.configPath, "--json")
	require.NoError(t, err)

	var env router.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.NotNil(t, env.Info)
	assert.Equal(t, router.SourceDocuments, env.Info.Source)
	require.NotEmpty(t, env.Info.Sources)
	assert.Equal(t, "policies.yaml", env.Info.Sources[0].Source)
	assert.Equal(t, []int{1}, env.Info.Cited)
	assert.True(t, strings.HasSuffix(env.Answer, "Sources: [1]"))
}

func TestIngestCommand_MissingDir(t *testing.T) {
	f := newFixture(t, "memory")

	_, _, err := run(t, "", "ingest", "--config", f.configPath, "--dir", f.dir+"/nope")
	require.Error(t, err)
}

func TestRenderEnvelope_DataError(t *testing.T) {
	var buf bytes.Buffer
	env := router.Envelope{
		Kind:   router.KindDataQuery,
		Answer: "Error running query: Unsafe SQL (write/DDL detected)",
		Data:   &router.DataQuery{Query: "DROP TABLE rooms", Error: "Unsafe SQL (write/DDL detected)"},
		Debug:  &router.Debug{Stage: router.StageData},
	}

	require.NoError(t, renderEnvelope(&buf, env))
	assert.Contains(t, buf.String(), "DROP TABLE rooms")
	assert.Contains(t, buf.String(), "Unsafe SQL")
	assert.Contains(t, buf.String(), "stage: data")
	assert.NotContains(t, buf.String(), "rows")
}
