// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package openai

import (
	"github.com/hosteldesk/deskbot/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.Request) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(req)
}
