// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package datastore

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "xxxxx"

var kvPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// RedactDSN masks the password in a URL or key=value connection string.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			return u.Redacted()
		}
	}
	return kvPassword.ReplaceAllString(dsn, "${1}"+redacted)
}

// Secrets returns the credential fragments of dsn that must never appear in
// error text: the full DSN and its password.
func Secrets(dsn string) []string {
	out := []string{dsn}
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			out = append(out, pw)
		}
	}
	for _, m := range kvPassword.FindAllStringSubmatch(dsn, -1) {
		pw := strings.Trim(m[2], "'")
		if pw != "" {
			out = append(out, pw)
		}
	}
	return out
}

// Redact replaces every secret in msg.
func Redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, redacted)
	}
	return msg
}
