// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package secrets

import (
	"log/slog"
	"strings"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/viper"
)

const scheme = "keyring://"

// IsURI reports whether value is a keyring reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseURI splits keyring://service/key. The key may contain slashes.
func ParseURI(uri string) (service, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", deskerr.Errorf(deskerr.CodeSecretURIInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok = strings.Cut(rest, "/")
	if !ok || service == "" || key == "" {
		return "", "", deskerr.Errorf(deskerr.CodeSecretURIInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret behind a keyring URI, or value unchanged when
// it is not one.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", deskerr.Wrapf(err, deskerr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring URI among v's string values. A value
// that cannot be resolved is left as is and logged, so the component that
// uses it reports the failure.
func ResolveViper(v *viper.Viper, store Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsURI(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			logger.Warn("keyring reference not resolved", "config_key", key, "error", err)
			continue
		}
		v.Set(key, resolved)
	}
}
