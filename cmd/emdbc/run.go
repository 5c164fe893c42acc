package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/emdb/engine"
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/pulpit"
)

type runFlags struct {
	args []string
}

func runCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <file.edb> <query>",
		Short: "Run one query against a freshly-seeded in-memory datastore",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRun(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringArrayVar(&flags.args, "arg", nil, "query parameter as name=value, repeatable")
	return cmd
}

func runRun(path, query string, flags *runFlags) error {
	p, diags, err := compile(path)
	if err != nil {
		return err
	}
	if diags.HasErrors() {
		return fmt.Errorf("emdbc: %s failed to compile:\n%s", path, diags.String())
	}

	qk, ok := findQuery(p, query)
	if !ok {
		return fmt.Errorf("emdbc: no query %q in %s", query, path)
	}

	env, err := parseArgs(flags.args)
	if err != nil {
		return err
	}

	ds := pulpit.NewDatastore()
	for _, tbl := range p.Tables.All() {
		ds.AddTable(pulpit.NewTable(tbl, pulpit.Options{Transactional: tbl.Transactional}))
	}

	in := engine.New(p, ds)
	out, err := in.Run(qk, env)
	if err != nil {
		return fmt.Errorf("emdbc: run %q: %w", query, err)
	}
	for k, v := range out {
		fmt.Printf("%s = %v\n", k, v)
	}
	return nil
}

// parseArgs turns "name=value" flags into an expr.Env, guessing int64, then
// float64, then bool ("true"/"false"), then falling back to string — the CLI has no access to a
// query's declared Param types at this point, only the source text.
func parseArgs(raw []string) (expr.Env, error) {
	env := make(expr.Env, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("emdbc: --arg %q must be name=value", kv)
		}
		env[name] = guessValue(value)
	}
	return env, nil
}

func guessValue(s string) expr.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return expr.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return expr.Float(f)
	}
	if s == "true" || s == "false" {
		return expr.Bool(s == "true")
	}
	return expr.Str(s)
}
