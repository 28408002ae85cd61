package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Compile and run a manifest once",
	Long: `Compiles the manifest and runs it with the given initial state.
The state is a JSON object, inline or read from a file with @path. Approval
gates halt the run unless the state carries a decision for them under
"decisions".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		stateFlag, _ := cmd.Flags().GetString("state")

		initial, err := readState(stateFlag)
		if err != nil {
			return err
		}
		m, err := readManifest(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		compiled := a.svc.Compile(cmd.Context(), m)
		if !compiled.Success {
			text, _ := tui.NewRenderer(os.Stdout)(tui.CompileReport(compiled))
			fmt.Fprint(cmd.OutOrStdout(), text)
			return errors.New("compilation failed")
		}

		res := a.svc.Run(cmd.Context(), m.ID, initial)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			text, err := tui.NewRenderer(os.Stdout)(tui.RunReport(res))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
		}
		if !res.Success {
			return errors.New("run failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("state", "", "Initial state as JSON, or @file")
	runCmd.Flags().Bool("json", false, "Print the run result as JSON")
}
