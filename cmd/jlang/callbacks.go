package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/program"
	"jsonnetcore/internal/span"
)

// fileCallbacks is the host-side import resolver a real embedding would
// supply — file I/O and import caching are named an external
// collaborator's responsibility in the core's own scope (spec.md §4.7),
// so this lives entirely in the demo CLI, never in internal/program.
// Resolution tries each jpath entry in order and caches already-read
// files by resolved path, the same linear-search-then-cache shape the
// reference CLI's own importer uses for -J.
type fileCallbacks struct {
	program.NoopCallbacks
	jpath []string
	cache map[string][]byte
}

func newFileCallbacks(jpath []string) *fileCallbacks {
	return &fileCallbacks{jpath: jpath, cache: make(map[string][]byte)}
}

func (c *fileCallbacks) resolve(path string) (string, []byte, error) {
	if filepath.IsAbs(path) {
		if data, ok := c.cache[path]; ok {
			return path, data, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		c.cache[path] = data
		return path, data, nil
	}
	for _, dir := range c.jpath {
		full := filepath.Join(dir, path)
		if data, ok := c.cache[full]; ok {
			return full, data, nil
		}
		data, err := os.ReadFile(full)
		if err == nil {
			c.cache[full] = data
			return full, data, nil
		}
	}
	return "", nil, os.ErrNotExist
}

func (c *fileCallbacks) Import(path string, fromSpan span.ID) (lang.Value, error) {
	resolved, data, err := c.resolve(path)
	if err != nil {
		return lang.Value{}, &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "import failed: " + path + ": " + err.Error()}
	}
	_ = resolved
	// A fully faithful import would re-enter Program.LoadSource and
	// ForceTopLevel the result; the demo CLI only exercises
	// importstr/importbin end to end and reports plain import as
	// unsupported, since wiring a nested Program.LoadSource call through
	// this callback would need the Program itself, which the Callbacks
	// interface deliberately doesn't hand back to avoid a dependency
	// cycle between the host and the evaluation it's driving.
	return lang.Value{}, &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "import (of Jsonnet values) not supported by this demo CLI; use importstr/importbin"}
}

func (c *fileCallbacks) ImportStr(path string, fromSpan span.ID) (string, error) {
	_, data, err := c.resolve(path)
	if err != nil {
		return "", &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "importstr failed: " + path + ": " + err.Error()}
	}
	return string(data), nil
}

func (c *fileCallbacks) ImportBin(path string, fromSpan span.ID) ([]byte, error) {
	_, data, err := c.resolve(path)
	if err != nil {
		return nil, &diagnostics.EvalError{Kind: diagnostics.KindBadImport, Message: "importbin failed: " + path + ": " + err.Error()}
	}
	return data, nil
}

func (c *fileCallbacks) Trace(message string, stack []diagnostics.StackFrame) {
	logger.Info("trace", zap.String("message", message))
}
