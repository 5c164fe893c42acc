// Command emdbc compiles .edb schema/query files into a logical plan and,
// optionally, generated Go source. It uses cobra for its subcommand tree,
// the same CLI shape as the pack's smf and schemift tools
// (check/build/run/watch mapping onto their diff/migrate/apply).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emdbc",
		Short: "Compiler for the embedded DSL database",
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
