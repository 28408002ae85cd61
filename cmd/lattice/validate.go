package main

import (
	"fmt"

	"github.com/aretw0/lattice"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>...",
	Short: "Check manifests for structural errors",
	Long:  `Reports dangling edges, cycles, duplicate ids, invalid branches and schema problems without compiling.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := lattice.New(lattice.WithLogger(logger))
		out := cmd.OutOrStdout()

		failed := 0
		for _, path := range args {
			m, err := readManifest(path)
			if err != nil {
				return err
			}
			errs, warnings := svc.Validate(m)
			for _, w := range warnings {
				fmt.Fprintf(out, "%s: warning: %s\n", path, w)
			}
			for _, e := range errs {
				fmt.Fprintf(out, "%s: error: %s\n", path, e)
			}
			if len(errs) > 0 {
				failed++
				continue
			}
			fmt.Fprintf(out, "%s: valid ✅\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d manifests invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
