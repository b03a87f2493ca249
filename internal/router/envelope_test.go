// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package router_test

import (
	"encoding/json"
	"testing"

	"github.com/hosteldesk/deskbot/internal/router"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name  string
		env   router.Envelope
		valid bool
	}{
		{name: "informational", env: router.Envelope{Kind: router.KindInformational, Info: &router.Informational{}}, valid: true},
		{name: "data query", env: router.Envelope{Kind: router.KindDataQuery, Data: &router.DataQuery{Safe: true}}, valid: true},
		{name: "rejected query", env: router.Envelope{Kind: router.KindDataQuery, Data: &router.DataQuery{Query: "drop table rooms"}}, valid: true},
		{name: "informational without payload", env: router.Envelope{Kind: router.KindInformational}},
		{name: "informational with data", env: router.Envelope{Kind: router.KindInformational, Info: &router.Informational{}, Data: &router.DataQuery{}}},
		{name: "data without payload", env: router.Envelope{Kind: router.KindDataQuery}},
		{name: "data with info", env: router.Envelope{Kind: router.KindDataQuery, Data: &router.DataQuery{}, Info: &router.Informational{}}},
		{name: "rejected query with rows", env: router.Envelope{Kind: router.KindDataQuery, Data: &router.DataQuery{Rows: []map[string]any{{"a": 1}}}}},
		{name: "unknown kind", env: router.Envelope{Kind: "bi", Info: &router.Informational{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, deskerr.HasCode(err, deskerr.CodeRouterEnvelopeInvalid))
		})
	}
}

func TestEnvelope_JSON(t *testing.T) {
	env := router.Envelope{
		Kind:   router.KindDataQuery,
		Answer: "Error running query: Unsafe SQL (write/DDL detected)",
		Data:   &router.DataQuery{Query: "DROP TABLE rooms", Error: "Unsafe SQL (write/DDL detected)"},
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "data-query", got["type"])
	assert.NotContains(t, got, "info")
	assert.NotContains(t, got, "debug")

	data := got["data"].(map[string]any)
	assert.Equal(t, false, data["safety_ok"])
	assert.Equal(t, "DROP TABLE rooms", data["sql"])
	assert.NotContains(t, data, "data")
}
