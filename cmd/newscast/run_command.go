package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Produce, publish and catalog one episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, cleanup, err := newRunner(cmd.Context(), cfg, ctx.log())
			if err != nil {
				return err
			}
			defer cleanup.close()

			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episodio %d publicado: %s\n", report.Record.Episodio, report.Record.Titulo)
			fmt.Fprintf(out, "Audio: %s\n", report.AudioURL)
			fmt.Fprintf(out, "Catálogo: %s (fuente %s)\n", cfg.Ledger.LocalPath, report.CatalogSource)
			if report.StatusURL != "" {
				fmt.Fprintf(out, "Anuncio: %s\n", report.StatusURL)
			}
			return nil
		},
	}
}
