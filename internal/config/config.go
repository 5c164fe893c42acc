// Package config reads emdbc.toml, the compiler's configuration file:
// output package/directory, worker count, and per-backend-impl option
// blocks, grounded on smf's TOML schema parser
// (internal/parser/toml/parser.go) — a top-level struct decoded directly
// with BurntSushi/toml, then converted into the compiler's own option
// types rather than consumed as a raw map.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/syssam/emdb/codegen"
)

// file is the top-level emdbc.toml document shape.
type file struct {
	Compiler compilerSection        `toml:"compiler"`
	Impl     map[string]implSection `toml:"impl"`
}

type compilerSection struct {
	Package string `toml:"package"`
	Target  string `toml:"target"`
	Header  string `toml:"header"`
	Workers int    `toml:"workers"`
}

// implSection holds one "impl Backend as Name { ... }" block's options,
// keyed by the impl's declared name. Values are kept as raw strings;
// Config.Transactional reads the "transactions" option, and no other
// option is interpreted by this system.
type implSection struct {
	Backend string            `toml:"backend"`
	Options map[string]string `toml:"options"`
}

// Config is the decoded, validated compiler configuration.
type Config struct {
	Package string
	Target  string
	Header  string
	Workers int
	Impls   map[string]ImplConfig
}

// ImplConfig is one backend-impl's resolved configuration block.
type ImplConfig struct {
	Backend string
	Options map[string]string
}

// Load reads and decodes path as an emdbc.toml document.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes r as an emdbc.toml document.
func Parse(r io.Reader) (*Config, error) {
	var doc file
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg := &Config{
		Package: doc.Compiler.Package,
		Target:  doc.Compiler.Target,
		Header:  doc.Compiler.Header,
		Workers: doc.Compiler.Workers,
		Impls:   make(map[string]ImplConfig, len(doc.Impl)),
	}
	for name, section := range doc.Impl {
		cfg.Impls[name] = ImplConfig{Backend: section.Backend, Options: section.Options}
	}
	return cfg, nil
}

// Transactional reports whether any impl block's options turn on
// transaction logging. Like the DSL's own "impl ... { transactions: true
// };" blocks, an emdbc.toml [impl.*] section has no per-table scoping
// either, so this is a single plan-wide override emdbc applies on top of
// whatever the source file's own impl blocks already set.
func (c *Config) Transactional() bool {
	for _, impl := range c.Impls {
		switch impl.Options["transactions"] {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}

// CodegenOptions translates c into the functional options codegen.NewConfig
// expects, so emdbc's build command can go straight from a parsed
// emdbc.toml to a codegen.Config without duplicating validation.
func (c *Config) CodegenOptions() []codegen.Option {
	var opts []codegen.Option
	if c.Package != "" {
		opts = append(opts, codegen.WithPackage(c.Package))
	}
	if c.Target != "" {
		opts = append(opts, codegen.WithTarget(c.Target))
	}
	if c.Header != "" {
		opts = append(opts, codegen.WithHeader(c.Header))
	}
	if c.Workers > 0 {
		opts = append(opts, codegen.WithWorkers(c.Workers))
	}
	return opts
}
