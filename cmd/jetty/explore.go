// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jettylabs-archive/jetty-access-control/internal/engine"
	"github.com/jettylabs-archive/jetty-access-control/internal/explore"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph"
	"github.com/jettylabs-archive/jetty-access-control/internal/graph/closure"
	"github.com/jettylabs-archive/jetty-access-control/internal/logging"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy"
	"github.com/jettylabs-archive/jetty-access-control/internal/policy/config"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// configDefaults seeds the config layers; the config file overrides
// these and flags override the file.
var configDefaults = map[string]any{
	"explore.addr":        ":3000",
	"log.format":          "json",
	"log.level":           "info",
	"limits.max_depth":    0,
	"limits.max_paths":    0,
	"limits.max_visited":  0,
}

// NewExploreCmd creates the explore subcommand: build a generation from
// the fetched graph and the policy/tag documents, then serve the
// exploration API.
func NewExploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Serve the access exploration API",
		Long: `Load the fetched graph bundle and the policy and tag documents,
build a generation, and serve the JSON exploration API until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplore(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "listen address (overrides explore.addr)")
	flags.String("graph", "", "graph bundle file")
	flags.String("policies", "", "policy document file")
	flags.String("tags", "", "tag taxonomy file")
	flags.String("log-format", "", "log format: json or text")
	flags.String("log-level", "", "minimum log level")

	return cmd
}

func runExplore(cmd *cobra.Command) error {
	k, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("jetty-explore", cmd.Root().Version, logging.Options{
		Format: k.String("log.format"),
		Level:  k.String("log.level"),
	})

	gen, err := buildGeneration(k)
	if err != nil {
		slog.Error("failed to build generation", "error", err)
		return err
	}

	svc := engine.NewService()
	svc.Publish(gen)
	slog.Info("generation published",
		"generation", gen.ID.String(),
		"nodes", gen.Store.Len(),
		"policies", gen.Index.Len())

	server := explore.NewServer(k.String("explore.addr"), svc)
	errCh, err := server.Start()
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case serveErr := <-errCh:
		if serveErr != nil {
			return oops.Wrapf(serveErr, "explore server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(ctx)
}

// NewValidateCmd creates the validate subcommand: load the configured
// inputs and fail on the first configuration error without serving.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the graph bundle and policy/tag documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			gen, err := buildGeneration(k)
			if err != nil {
				return err
			}
			cmd.Printf("ok: %d nodes, %d policies\n", gen.Store.Len(), gen.Index.Len())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("graph", "", "graph bundle file")
	flags.String("policies", "", "policy document file")
	flags.String("tags", "", "tag taxonomy file")

	return cmd
}

// loadConfig layers defaults, the optional config file, and flags.
func loadConfig(flags *pflag.FlagSet) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(configDefaults, "."), nil); err != nil {
		return nil, oops.Wrapf(err, "failed to load defaults")
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.With("path", configFile).Wrapf(err, "failed to load config file")
		}
	}
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagToKey), nil); err != nil {
		return nil, oops.Wrapf(err, "failed to load flags")
	}
	return k, nil
}

// flagToKey maps flag names onto config keys, so --addr overrides
// explore.addr and --log-format overrides log.format.
func flagToKey(f *pflag.Flag) (string, any) {
	if f.Value.String() == "" && !f.Changed {
		return "", nil
	}
	switch f.Name {
	case "addr":
		return "explore.addr", f.Value.String()
	case "log-format":
		return "log.format", f.Value.String()
	case "log-level":
		return "log.level", f.Value.String()
	case "graph", "policies", "tags":
		return f.Name, f.Value.String()
	}
	return "", nil
}

// buildGeneration loads the configured inputs and builds one
// generation.
func buildGeneration(k *koanf.Koanf) (*engine.Generation, error) {
	graphPath := k.String("graph")
	if graphPath == "" {
		return nil, oops.
			Code(graph.CodeConfigurationError).
			Errorf("no graph bundle configured (set graph: in the config file or pass --graph)")
	}

	bundleData, err := os.ReadFile(graphPath)
	if err != nil {
		return nil, oops.With("path", graphPath).Wrapf(err, "failed to read graph bundle")
	}
	bundle, err := engine.ParseBundle(bundleData)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder()
	if err := bundle.Apply(builder); err != nil {
		return nil, err
	}

	if tagPath := k.String("tags"); tagPath != "" {
		tagData, err := os.ReadFile(tagPath)
		if err != nil {
			return nil, oops.With("path", tagPath).Wrapf(err, "failed to read tag taxonomy")
		}
		tags, err := config.ParseTags(tagData)
		if err != nil {
			return nil, err
		}
		if err := tags.Apply(builder); err != nil {
			return nil, err
		}
	}

	var policies []policy.Policy
	if policyPath := k.String("policies"); policyPath != "" {
		policyData, err := os.ReadFile(policyPath)
		if err != nil {
			return nil, oops.With("path", policyPath).Wrapf(err, "failed to read policy document")
		}
		policies, err = config.ParsePolicies(policyData)
		if err != nil {
			return nil, err
		}
	}

	limits := closure.Limits{
		MaxDepth:        k.Int("limits.max_depth"),
		MaxPathsPerNode: k.Int("limits.max_paths"),
		MaxVisited:      k.Int("limits.max_visited"),
	}
	return engine.Build(builder, policies, limits)
}
