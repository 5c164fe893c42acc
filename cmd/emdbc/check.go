package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.edb>",
		Short: "Parse and lower a schema/query file, reporting diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runCheck(path string) error {
	p, diags, err := compile(path)
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diags.String())
	}
	if diags.HasErrors() {
		return fmt.Errorf("emdbc: %s failed to compile", path)
	}
	fmt.Printf("%s: ok (%d tables, %d queries)\n", path, p.Tables.Len(), p.Queries.Len())
	return nil
}
