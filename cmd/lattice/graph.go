package main

import (
	"fmt"

	"github.com/aretw0/lattice"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <manifest>",
	Short: "Export the manifest as a Mermaid diagram",
	Long:  `Outputs a Mermaid flowchart (graph TD) of the manifest, with branch labels taken from the routing table.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := readManifest(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), lattice.New().Mermaid(m))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
