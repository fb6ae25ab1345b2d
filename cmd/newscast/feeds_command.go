package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/edopalomino/generate-startupcafe/pkg/content"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List the items the next run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := newCollector(cfg, ctx.log()).Collect(cmd.Context())

			out := cmd.OutOrStdout()
			for _, failure := range result.Failures {
				fmt.Fprintf(out, "! %s\n", failure.Error())
			}
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(result.Items))
			for i, item := range result.Items {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					item.PublishedAt.Local().Format(time.DateTime),
					content.TruncateRunes(item.Title, 60),
					item.Key(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Published", "Title", "Link"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d items selected\n", len(result.Items), result.Seen)
			return nil
		},
	}
}
