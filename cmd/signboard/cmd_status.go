/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/signboard/internal/auth"
	"github.com/friendsincode/signboard/internal/campaign"
	"github.com/friendsincode/signboard/internal/db"
	"github.com/friendsincode/signboard/internal/sequence"
	"github.com/friendsincode/signboard/internal/server"
)

var (
	statusUserID string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print campaign status for a user's sequences",
	Long: `Run one aggregation pass for a user and print the result.

Examples:
  # JSON (default)
  signboard status --user 5f0c...

  # YAML
  signboard status --user 5f0c... --output yaml
`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusUserID, "user", "", "User id whose sequences are aggregated (required)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "json", "Output format: json or yaml")
	_ = statusCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(statusOutput)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported output %q (want json or yaml)", statusOutput)
	}
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	user, err := auth.GetUser(ctx, database, statusUserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", statusUserID, err)
	}

	client, err := server.NewStacksClient(cfg, logger)
	if err != nil {
		return err
	}
	store := sequence.NewStore(database, logger)
	aggregator := campaign.NewAggregator(store, client, nil, server.AggregatorOptions(cfg), logger)

	result, err := aggregator.AggregateAll(ctx, campaign.Caller{
		UserID:        user.ID,
		Email:         user.Email,
		Authenticated: true,
	})
	if err != nil {
		return err
	}
	return writeStatus(cmd.OutOrStdout(), format, result)
}

// writeStatus renders the result. YAML goes through the JSON form so field
// names and null timestamps match the HTTP API.
func writeStatus(out io.Writer, format string, result *campaign.Result) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(plainNumbers(generic))
}

// plainNumbers replaces json.Number so millisecond timestamps stay integers
// instead of the float exponent form.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = plainNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = plainNumbers(val)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
