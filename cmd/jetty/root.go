// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Jetty Labs

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the jetty CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jetty",
		Short: "Jetty - cross-platform data access governance",
		Long: `Jetty builds a unified graph of users, groups, assets, and tags
across data platforms and answers who can access what, and why.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewExploreCmd())
	cmd.AddCommand(NewValidateCmd())

	return cmd
}
