package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/internal/config"
)

func TestParseDecodesCompilerAndImplBlocks(t *testing.T) {
	src := `
[compiler]
package = "queries"
target = "./gen"
workers = 8

[impl.sql]
backend = "postgres"
options = { dsn = "postgres://local" }
`
	cfg, err := config.Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "queries", cfg.Package)
	assert.Equal(t, "./gen", cfg.Target)
	assert.Equal(t, 8, cfg.Workers)

	impl, ok := cfg.Impls["sql"]
	require.True(t, ok)
	assert.Equal(t, "postgres", impl.Backend)
	assert.Equal(t, "postgres://local", impl.Options["dsn"])
}

func TestCodegenOptionsOmitsUnsetFields(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(`
[compiler]
package = "queries"
target = "./gen"
`))
	require.NoError(t, err)

	opts := cfg.CodegenOptions()
	assert.Len(t, opts, 2)
}
