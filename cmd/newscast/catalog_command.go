package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edopalomino/generate-startupcafe/pkg/content"
	"github.com/edopalomino/generate-startupcafe/pkg/ledger"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the episode catalog and where it was loaded from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, source, err := newLedger(cfg, ctx.log()).Load(cmd.Context())
			if err != nil {
				return err
			}

			records := catalog
			if last > 0 && len(records) > last {
				records = records[len(records)-last:]
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					strconv.Itoa(rec.Episodio),
					content.TruncateRunes(rec.Titulo, 50),
					rec.URL,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Episodio", "Título", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d episodes (source %s), next is %d\n", len(catalog), source, ledger.NextEpisodeNumber(catalog))
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "Only show the last N episodes")
	return cmd
}
