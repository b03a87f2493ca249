// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package google

import (
	"github.com/hosteldesk/deskbot/internal/provider"
	"google.golang.org/genai"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]*genai.Content, []string, error) {
	return convertMessages(msgs)
}
