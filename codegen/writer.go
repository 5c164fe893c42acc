package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"
)

// writeFile renders f, runs it through goimports, and writes it to
// filepath.Join(outDir, name), mirroring compiler/gen/writer.go's
// generateFile: format first, write once, leave an ".error" copy behind
// on a formatting failure so the bad output is inspectable.
func writeFile(outDir, name string, f *jen.File) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("codegen: render %s: %w", name, err)
	}

	fullPath := filepath.Join(outDir, name)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		debugPath := fullPath + ".error"
		_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return fmt.Errorf("codegen: format %s: %w (unformatted written to %s)", name, err, debugPath)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("codegen: create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return fmt.Errorf("codegen: write %s: %w", name, err)
	}
	return nil
}
