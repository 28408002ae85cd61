package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <manifest>",
	Short: "Compile a manifest and print the compile report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		m, err := readManifest(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.svc.Compile(cmd.Context(), m)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			text, err := tui.NewRenderer(os.Stdout)(tui.CompileReport(res))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
		}
		if !res.Success {
			return errors.New("compilation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Bool("json", false, "Print the compile result as JSON")
}
