package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/emdb/codegen"
	"github.com/syssam/emdb/internal/config"
)

type buildFlags struct {
	configPath string
	pkg        string
	target     string
	workers    int
	verbose    bool
}

func buildCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <file.edb>",
		Short: "Lower a schema/query file and generate typed Go source",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBuild(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to emdbc.toml")
	cmd.Flags().StringVar(&flags.pkg, "package", "", "output package name (overrides config)")
	cmd.Flags().StringVarP(&flags.target, "target", "o", "", "output directory (overrides config)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "parallel file-generation workers (overrides config)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print timing for each build step")
	return cmd
}

func runBuild(path string, flags *buildFlags) error {
	start := time.Now()

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
	if flags.verbose {
		fmt.Printf("lowered %s in %s\n", path, time.Since(start))
	}

	opts, fileCfg, err := buildOptions(flags)
	if err != nil {
		return err
	}
	if fileCfg != nil && fileCfg.Transactional() {
		for _, tbl := range p.Tables.All() {
			tbl.Transactional = true
		}
	}

	cfg, err := codegen.NewConfig(opts...)
	if err != nil {
		return fmt.Errorf("emdbc: %w", err)
	}

	genStart := time.Now()
	gen := codegen.NewGenerator(p, cfg)
	if err := gen.Generate(context.Background()); err != nil {
		return fmt.Errorf("emdbc: generate: %w", err)
	}
	if flags.verbose {
		fmt.Printf("generated code into %s in %s\n", cfg.Target, time.Since(genStart))
	}
	return nil
}

// buildOptions returns the codegen options built from flags and (if
// -config was given) the loaded file config itself, so the caller can also
// apply its non-codegen settings (e.g. a transactions override) to the
// plan before generating.
func buildOptions(flags *buildFlags) ([]codegen.Option, *config.Config, error) {
	var opts []codegen.Option
	var fileCfg *config.Config
	if flags.configPath != "" {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("emdbc: %w", err)
		}
		fileCfg = cfg
		opts = append(opts, cfg.CodegenOptions()...)
	}
	if flags.pkg != "" {
		opts = append(opts, codegen.WithPackage(flags.pkg))
	}
	if flags.target != "" {
		opts = append(opts, codegen.WithTarget(flags.target))
	}
	if flags.workers > 0 {
		opts = append(opts, codegen.WithWorkers(flags.workers))
	}
	return opts, fileCfg, nil
}
