package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/catalog"
)

func templatesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the card templates with their prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			cards, err := catalog.New(client).Load(cmd.Context())
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tIMAGE")
			for _, card := range cards {
				image := card.ImageURL
				if image == "" {
					image = card.Badge
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", card.ID, card.Title, card.PriceLabel, image)
			}
			return tw.Flush()
		},
	}
}
