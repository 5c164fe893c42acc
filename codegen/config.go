package codegen

import "runtime"

// Config configures code generation, mirroring the teacher's
// compiler/gen.Config functional-options shape: a small struct built up by
// Option funcs rather than a constructor with a long positional parameter
// list.
type Config struct {
	// Package is the output package name, e.g. "queries".
	Package string
	// Target is the output directory generated files are written under.
	Target string
	// Header, if non-empty, is prepended as a comment to every generated
	// file.
	Header string
	// Workers bounds the number of files generated concurrently. Defaults
	// to runtime.GOMAXPROCS(0).
	Workers int
}

// Option configures a Config.
type Option func(*Config) error

// WithPackage sets the output package name.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithWorkers sets the number of files generated in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// Apply applies opts to c in order, stopping at the first error.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// NewConfig builds a Config from opts, defaulting Workers to
// runtime.GOMAXPROCS(0) when unset.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{Workers: runtime.GOMAXPROCS(0)}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if c.Package == "" {
		return nil, NewConfigError("Package", nil, "package is required")
	}
	if c.Target == "" {
		return nil, NewConfigError("Target", nil, "target is required")
	}
	return c, nil
}
