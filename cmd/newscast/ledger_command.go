package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edopalomino/generate-startupcafe/pkg/ledger"
)

const metaEnv = "EPISODE_META_JSON"

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Maintain the episode catalog",
	}
	cmd.AddCommand(newLedgerAppendCommand(ctx))
	return cmd
}

func newLedgerAppendCommand(ctx *commandContext) *cobra.Command {
	var metaFlag string

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append the episode described by a metadata file to the catalog",
		Long: "Reads a metadata JSON file ({url, titulo, descripcion}) and appends it to the catalog.\n" +
			"Appending is not idempotent: running it twice adds two episodes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path := strings.TrimSpace(metaFlag)
			if path == "" {
				path = strings.TrimSpace(os.Getenv(metaEnv))
			}
			meta, err := ledger.ReadMeta(path)
			if err != nil {
				return fmt.Errorf("%w (use --meta or %s)", err, metaEnv)
			}

			result, err := newLedger(cfg, ctx.log()).Append(cmd.Context(), meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Nuevo episodio agregado: %d %s (fuente %s)\n",
				result.Record.Episodio, result.Record.Titulo, result.Source)
			return nil
		},
	}
	cmd.Flags().StringVar(&metaFlag, "meta", "", "Metadata JSON file (defaults to $"+metaEnv+")")
	return cmd
}
