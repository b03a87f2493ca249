// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package secrets keeps provider keys and database credentials out of
// config files. A config value of the form keyring://service/key is
// replaced with the secret stored in the OS keyring.
package secrets

import (
	"errors"
	"strings"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/zalando/go-keyring"
)

// Store reads and writes named secrets.
type Store interface {
	Set(service, key, value string) error
	Get(service, key string) (string, error)
	Delete(service, key string) error
}

// KeyringStore is a Store over the OS keyring: Keychain on macOS,
// secret-service on Linux, Credential Manager on Windows.
type KeyringStore struct{}

var _ Store = KeyringStore{}

func checkName(op, service, key string) error {
	if strings.TrimSpace(service) == "" || strings.TrimSpace(key) == "" {
		return deskerr.Errorf(deskerr.CodeSecretURIInvalidInput, "secret %s: service and key must not be empty", op)
	}
	return nil
}

func (KeyringStore) Set(service, key, value string) error {
	if err := checkName("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return deskerr.Wrapf(err, deskerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (KeyringStore) Get(service, key string) (string, error) {
	if err := checkName("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", deskerr.Errorf(deskerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", deskerr.Wrapf(err, deskerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (KeyringStore) Delete(service, key string) error {
	if err := checkName("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return deskerr.Errorf(deskerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return deskerr.Wrapf(err, deskerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}
