package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/catalog"
)

type seedFile struct {
	Templates []apiclient.TemplateSeed `yaml:"templates"`
}

// parseSeedFile accepts either a top-level list or a mapping with a templates key.
func parseSeedFile(data []byte) ([]apiclient.TemplateSeed, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var list []apiclient.TemplateSeed
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return doc.Templates, nil
}

func seedCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert templates through the internal seed endpoint",
		Long: `Upsert templates through the internal seed endpoint. Without --file the server
seeds its built-in templates. The endpoint needs an OIDC service token in --token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var seeds []apiclient.TemplateSeed
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read seed file: %w", err)
				}
				if seeds, err = parseSeedFile(data); err != nil {
					return err
				}
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			templates, err := client.SeedTemplates(cmd.Context(), seeds)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tpl := range templates {
				card := catalog.NewCard(tpl, "usd")
				fmt.Fprintf(out, "%s\t%s\t%s\n", card.ID, card.Title, card.PriceLabel)
			}
			fmt.Fprintf(out, "seeded %d template(s)\n", len(templates))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with templates")
	return cmd
}
