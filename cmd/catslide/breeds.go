package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Sternrassler/cat-slideshow/pkg/client"
	"github.com/spf13/cobra"
)

func newBreedsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "breeds",
		Short: "List the selectable breeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(a.cfg, nil)
			if err != nil {
				return err
			}
			defer api.Close()

			breeds, err := api.Breeds(cmd.Context())
			if err != nil {
				return err
			}
			options := client.BreedOptions(breeds)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(options)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, b := range options {
				fmt.Fprintf(tw, "%s\t%s\n", b.ID, b.Name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
