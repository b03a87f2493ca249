// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/cobra"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets stored in the OS keyring",
		Long: "Store and delete secrets in the operating system keyring. " +
			"Reference them from the config as keyring://<service>/<key>.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <service> <key>",
		Short: "Store a secret read from the first line of stdin",
		Args:  cobra.ExactArgs(2),
		RunE:  runSecretSet,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <service> <key>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(2),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	service, key := args[0], args[1]

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		if err != nil {
			return deskerr.Errorf(deskerr.CodeCLIInputInvalid, "reading secret value from stdin: %w", err)
		}
		return deskerr.New(deskerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Set(service, key, value); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored keyring://%s/%s\n", service, key)
	return err
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	service, key := args[0], args[1]

	if err := secretStoreFactory().Delete(service, key); err != nil {
		if deskerr.HasCode(err, deskerr.CodeSecretNotFound) {
			return deskerr.Errorf(deskerr.CodeSecretNotFound, "secret keyring://%s/%s not found", service, key)
		}
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted keyring://%s/%s\n", service, key)
	return err
}
