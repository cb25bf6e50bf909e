// Package main implements jlang, a thin CLI exercising the
// jsonnetcore embedding API end to end: evaluate a file, bind external
// variables, and manifest the result as JSON or YAML. The CLI itself is
// named an external collaborator out of the core's own scope — this is
// demo tooling, kept deliberately small, in the spirit of the reference
// implementation's own cli.rs/main.rs (-J, --ext-str, --ext-code, -S,
// -y, -m).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jsonnetcore/internal/config"
	"jsonnetcore/internal/frontend"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/program"
)

var (
	verbose    bool
	configPath string
	jpath      []string
	extStr     []string
	extCode    []string
	extVarFile string
	outString  bool
	yamlStream bool
	multiDir   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jlang [file]",
	Short: "jlang evaluates a Jsonnet-like configuration file",
	Long: `jlang is a demo CLI over the jsonnetcore embedding API.

It evaluates a single source file and manifests the result as JSON
(by default), a raw string (-S), or YAML (-y), mirroring the reference
implementation's own cli.rs flag surface.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a program config YAML file")
	rootCmd.Flags().StringArrayVarP(&jpath, "jpath", "J", nil, "additional import search path (repeatable)")
	rootCmd.Flags().StringArrayVar(&extStr, "ext-str", nil, "set an external variable to a raw string, name=value")
	rootCmd.Flags().StringArrayVar(&extCode, "ext-code", nil, "set an external variable to Jsonnet code, name=code")
	rootCmd.Flags().StringVar(&extVarFile, "ext-vars-file", "", "YAML file of str/code external variables")
	rootCmd.Flags().BoolVarP(&outString, "string", "S", false, "expect a string result and print it raw")
	rootCmd.Flags().BoolVarP(&yamlStream, "yaml-stream", "y", false, "manifest as a YAML stream (top-level array)")
	rootCmd.Flags().StringVarP(&multiDir, "multi", "m", "", "write each top-level object field to its own file under this directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jlang:", err)
		os.Exit(1)
	}
}

func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	var err error
	logger, err = buildLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	p, err := program.New(cfg)
	if err != nil {
		return fmt.Errorf("init program: %w", err)
	}
	defer p.Close()
	logger.Info("session started", zap.String("session_id", p.SessionID()))

	if err := bindExtVars(p); err != nil {
		return err
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	jpath = append(jpath, filepath.Dir(path))
	cb := newFileCallbacks(jpath)

	thunk, err := p.LoadSource(src, true, path)
	if err != nil {
		return formatFailure(err)
	}
	v, err := p.EvalValue(thunk, cb)
	if err != nil {
		return formatFailure(err)
	}

	out, err := manifestResult(p, v)
	if err != nil {
		return formatFailure(err)
	}

	if multiDir != "" {
		return writeMulti(p, v)
	}
	fmt.Println(out)
	return nil
}

func manifestResult(p *program.Program, v lang.Value) (string, error) {
	switch {
	case outString:
		if v.Kind != lang.ValueString {
			return "", fmt.Errorf("-S given but result is not a string")
		}
		return v.String, nil
	case yamlStream:
		return p.ManifestYAMLStream(v, true, false)
	default:
		return p.ManifestJSON(v, true)
	}
}

// writeMulti manifests each top-level object field to its own file under
// multiDir, named after the field, mirroring the reference CLI's -m.
func writeMulti(p *program.Program, v lang.Value) error {
	if v.Kind != lang.ValueObject {
		return fmt.Errorf("-m given but result is not an object")
	}
	if err := os.MkdirAll(multiDir, 0o755); err != nil {
		return err
	}
	obj := v.Object.Get()
	for _, name := range obj.FieldsOrder() {
		if !obj.FieldIsVisible(name) {
			continue
		}
		fv, err := p.ObjectFieldValue(v, name.Value())
		if err != nil {
			return formatFailure(err)
		}
		text, err := p.ManifestJSON(fv, true)
		if err != nil {
			return err
		}
		outPath := filepath.Join(multiDir, name.Value()+".json")
		if err := os.WriteFile(outPath, []byte(text+"\n"), 0o644); err != nil {
			return err
		}
		fmt.Println(outPath)
	}
	return nil
}

func bindExtVars(p *program.Program) error {
	if extVarFile != "" {
		seed, err := frontend.LoadExtVarSeed(extVarFile)
		if err != nil {
			return fmt.Errorf("load ext-vars-file: %w", err)
		}
		for name, v := range seed.Str {
			if err := p.AddExtVar(name, lang.StringValue(v)); err != nil {
				return err
			}
		}
		for name, code := range seed.Code {
			if err := addExtCode(p, name, code); err != nil {
				return err
			}
		}
	}
	for _, kv := range extStr {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --ext-str %q, want name=value", kv)
		}
		if err := p.AddExtVar(name, lang.StringValue(val)); err != nil {
			return err
		}
	}
	for _, kv := range extCode {
		name, code, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --ext-code %q, want name=code", kv)
		}
		if err := addExtCode(p, name, code); err != nil {
			return err
		}
	}
	return nil
}

func addExtCode(p *program.Program, name, code string) error {
	thunk, err := p.LoadSource([]byte(code), true, "<ext-code:"+name+">")
	if err != nil {
		return fmt.Errorf("parse --ext-code %s: %w", name, err)
	}
	v, err := p.EvalValue(thunk, program.NoopCallbacks{})
	if err != nil {
		return fmt.Errorf("eval --ext-code %s: %w", name, err)
	}
	return p.AddExtVar(name, v)
}

func formatFailure(err error) error {
	return fmt.Errorf("evaluation failed: %w", err)
}
