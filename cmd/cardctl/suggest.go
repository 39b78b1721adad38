package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/suggestions"
)

func suggestCmd() *cobra.Command {
	var (
		occasion string
		audience string
		shuffle  bool
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show ready-made designs for an occasion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := suggestions.ParseOccasion(occasion)
			if err != nil {
				return err
			}
			r, err := suggestions.ParseRecipient(audience)
			if err != nil {
				return err
			}
			list, ok := suggestions.Lookup(o, r)
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "No ideas for %s/%s yet, showing %s/%s.\n", o, r, suggestions.Holiday, suggestions.Family)
			}
			if shuffle {
				list = suggestions.Shuffle(list, nil)
			}
			for i, s := range list {
				fmt.Fprintf(out, "%d. %s\n   %s %dpx %s at %.0f%%,%.0f%%\n",
					i+1, s.Text, s.FontFamily, s.FontSize, s.TextColor, s.Position.X, s.Position.Y)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&occasion, "occasion", "holiday", "holiday or birthday")
	cmd.Flags().StringVar(&audience, "for", "family", "family, friends or business")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "show the ideas in a new order")
	return cmd
}
