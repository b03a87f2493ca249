// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/hosteldesk/deskbot/internal/config"
	"github.com/hosteldesk/deskbot/internal/secrets"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// secretStoreFactory creates the secrets.Store used for keyring references
// and the secret command. Tests substitute a mock keyring.
var secretStoreFactory = func() secrets.Store {
	return secrets.KeyringStore{}
}

// cli is the state shared by every command of one root.
type cli struct {
	v      *viper.Viper
	logger *slog.Logger
}

// NewRootCmd creates the root deskbot command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), logger: slog.Default()}

	root := &cobra.Command{
		Use:           "deskbot",
		Short:         "deskbot answers hostel info-desk questions",
		Long:          "deskbot routes visitor questions to session memory, the hostel knowledge base, read-only data queries or document retrieval.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newIngestCmd(c),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// init sets up viper with defaults, env bindings, flag bindings and an
// optional config file so the precedence flag > env > file > defaults is
// handled uniformly, then installs the logger.
func (c *cli) init(cmd *cobra.Command) error {
	v := c.v

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return deskerr.Errorf(deskerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset so viper never falls back to a bare
		// "deskbot" file, which would be the binary itself.
		v.SetConfigName("deskbot")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/deskbot")
		v.AddConfigPath("/etc/deskbot")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return deskerr.Errorf(deskerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return deskerr.Errorf(deskerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{"verbose": "verbose", "log_format": "log-format"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return deskerr.Errorf(deskerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log_format"), v.GetBool("verbose"))
	if err != nil {
		return err
	}
	c.logger = logger
	slog.SetDefault(logger)

	config.WarnInsecurePermissions(v.ConfigFileUsed())
	return nil
}

// load resolves keyring references and decodes the validated config.
func (c *cli) load() (*config.Config, error) {
	secrets.ResolveViper(c.v, secretStoreFactory(), c.logger)
	return config.FromViper(c.v)
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, deskerr.Errorf(deskerr.CodeCLIInputInvalid, "unknown log format %q (want text or json)", format)
	}
}
