package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentuity/go-memoize/cache"
	"github.com/agentuity/go-memoize/config"
	"github.com/agentuity/go-memoize/keys"
	"github.com/agentuity/go-memoize/logger"
	"github.com/agentuity/go-memoize/memoize"
	"github.com/agentuity/go-memoize/serial"
	"github.com/agentuity/go-memoize/telemetry"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type app struct {
	cfg      *config.Config
	log      logger.Logger
	m        *memoize.Memoizer
	backend  cache.Backend
	shutdown telemetry.ShutdownFunc
}

// flagOrEnv returns the flag value when set, then the environment value,
// then defaultValue.
func flagOrEnv(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if v, _ := cmd.Flags().GetString(flagName); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(envName); ok {
		return v
	}
	return defaultValue
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "memoize",
		Short:        "Inspect and manage a memoization cache",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagOrEnv(cmd, "config", "MEMOIZE_CONFIG", ""))
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("backend"); v != "" {
				cfg.Backend = v
			}
			if v, _ := cmd.Flags().GetString("log-level"); v != "" {
				cfg.LogLevel = v
			}
			a.cfg = cfg
			a.log = cfg.Logger()
			if otlpURL := flagOrEnv(cmd, "otlp-url", "MEMOIZE_OTLP_URL", ""); otlpURL != "" {
				token := flagOrEnv(cmd, "otlp-token", "MEMOIZE_OTLP_TOKEN", "")
				level := logger.ParseLevel(flagOrEnv(cmd, "otlp-log-level", "MEMOIZE_OTLP_LOG_LEVEL", "info"))
				otelLog, shutdown, err := telemetry.New(cmd.Context(), otlpURL, token, "memoize", level)
				if err != nil {
					return err
				}
				a.log, a.shutdown = a.log.Stack(otelLog), shutdown
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.shutdown != nil {
				a.shutdown()
			}
			if a.backend != nil {
				return a.backend.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (env MEMOIZE_CONFIG)")
	root.PersistentFlags().String("backend", "", "cache backend url, overriding the config")
	root.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error, none")
	root.PersistentFlags().String("otlp-url", "", "export traces and logs to this OTLP/HTTP server (env MEMOIZE_OTLP_URL)")
	root.PersistentFlags().String("otlp-token", "", "bearer token for the OTLP server (env MEMOIZE_OTLP_TOKEN)")
	root.PersistentFlags().String("otlp-log-level", "", "lowest level exported to the OTLP server, default info (env MEMOIZE_OTLP_LOG_LEVEL)")

	root.AddCommand(
		a.keyCommand(),
		a.getCommand(),
		a.putCommand(),
		a.invalidateCommand(),
		a.serialCommand(),
	)
	return root
}

// connect opens the backend on first use.
func (a *app) connect(cmd *cobra.Command) error {
	if a.m != nil {
		return nil
	}
	m, backend, err := a.cfg.New(cmd.Context(), a.log)
	if err != nil {
		return err
	}
	a.m, a.backend = m, backend
	return nil
}

func callOptions(cmd *cobra.Command) []memoize.CallOption {
	var opts []memoize.CallOption
	if large, _ := cmd.Flags().GetBool("large"); large {
		opts = append(opts, memoize.Large())
	}
	if compress, err := cmd.Flags().GetBool("compress"); err == nil && !compress {
		opts = append(opts, memoize.WithCompression(false))
	}
	return opts
}

func addPathFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("large", false, "use the chunked large-value path")
	cmd.Flags().Bool("compress", true, "large values are zlib compressed")
}

func (a *app) keyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key <key>",
		Short: "Print the backend key a logical key maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := a.cfg.Memoize()
			normalizer := keys.NewNormalizer(mc.MaxKeyLength, mc.Namespace)
			fmt.Fprintln(cmd.OutOrStdout(), normalizer.Normalize(cmd.Context(), args[0]))
			return nil
		},
	}
}

func (a *app) getCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			val, ok := memoize.Lookup[any](cmd.Context(), a.m, args[0], callOptions(cmd)...)
			if !ok {
				return errors.Newf("%s: not cached", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(val)
		},
	}
	addPathFlags(cmd)
	return cmd
}

func (a *app) putCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a string value, replacing any cached one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			opts := append(callOptions(cmd), memoize.ForceOverwrite())
			if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
				opts = append(opts, memoize.WithExpiration(ttl))
			}
			_, err := memoize.Memoize(cmd.Context(), a.m, args[0], func(ctx context.Context) (string, error) {
				return args[1], nil
			}, opts...)
			if err != nil {
				return err
			}
			a.log.Info("Stored %s as %s", args[0], a.m.NormalizeKey(cmd.Context(), args[0]))
			return nil
		},
	}
	addPathFlags(cmd)
	cmd.Flags().Duration("ttl", time.Duration(0), "expiration, defaults to the configured default_expiration")
	return cmd
}

func (a *app) invalidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <key>",
		Short: "Remove a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd); err != nil {
				return err
			}
			deleted, err := a.m.Invalidate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if deleted {
				a.log.Info("Invalidated %s", args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not cached\n", args[0])
			}
			return nil
		},
	}
}

func (a *app) serialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serial",
		Short: "Print the media, template and locale serials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := a.cfg.Serials()
			media, err := set.Media()
			if err != nil {
				return err
			}
			templates, err := set.Templates()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "media=%d\ntemplates=%d\n", media, templates)
			if dirs, _ := cmd.Flags().GetStringSlice("locale"); len(dirs) > 0 {
				locale, err := serial.Locale(dirs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "locale=%d\n", locale)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("locale", nil, "locale directories to scan for .mo catalogs")
	return cmd
}
