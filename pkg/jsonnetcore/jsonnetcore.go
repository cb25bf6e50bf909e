// Package jsonnetcore is the stable import path an embedding host
// depends on. It re-exports internal/program's types under their own
// names so the host never imports an internal/ package directly, the
// same thin-facade role the teacher reserves a pkg/ directory for over
// its own internal/ implementation packages.
package jsonnetcore

import (
	"jsonnetcore/internal/arena"
	"jsonnetcore/internal/config"
	"jsonnetcore/internal/diagnostics"
	"jsonnetcore/internal/heap"
	"jsonnetcore/internal/lang"
	"jsonnetcore/internal/program"
)

type (
	// Program is the embedding API entry point: one arena, one
	// evaluator, one standard library instance.
	Program = program.Program

	// Callbacks is implemented by the host to resolve imports, observe
	// traces, and answer native calls.
	Callbacks = program.Callbacks

	// NoopCallbacks is a Callbacks base that fails imports/native calls
	// and discards traces; embed it and override what you need.
	NoopCallbacks = program.NoopCallbacks

	// NamedValue is one MakeObject field.
	NamedValue = program.NamedValue

	// Config tunes stack depth, GC cadence, and log verbosity.
	Config = config.Config

	// Value is a fully evaluated Jsonnet value.
	Value = lang.Value

	// Thunk is a reference to a (possibly not yet forced) lazy cell.
	Thunk = heap.Ref[*lang.ThunkData]

	// EvalError is returned by every evaluation entry point on failure.
	EvalError = diagnostics.EvalError

	// Arena is the bump allocator backing every IR node a Program parses.
	Arena = arena.Arena
)

// NewProgram builds a Program, using config.Default() if cfg is nil and
// allocating it a fresh Arena.
func NewProgram(cfg *Config) (*Program, error) { return program.New(cfg) }

// NewProgramWithArena builds a Program backed by an explicit Arena,
// mirroring the reference embedding API's Program::new(arena)
// constructor literally.
func NewProgramWithArena(cfg *Config, a *Arena) (*Program, error) {
	return program.NewWithArena(cfg, a)
}

// NewArena returns an empty Arena, ready to pass to NewProgramWithArena.
func NewArena() *Arena { return arena.New() }

// DefaultConfig returns the out-of-the-box tuning knobs.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads tuning knobs from a YAML file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Null is the canonical null value, for hosts building values with
// MakeArray/MakeObject without importing internal/lang.
var Null = lang.NullValue

// Bool, Number, and String wrap Go values as Jsonnet Values.
func Bool(b bool) Value      { return lang.BoolValue(b) }
func Number(n float64) Value { return lang.NumberValue(n) }
func String(s string) Value  { return lang.StringValue(s) }
