package frontend

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ExtVarSeed describes one external variable the demo CLI should add to
// a program before evaluating a file, loaded from a small YAML sidecar
// rather than threading a flag per variable — the same shape
// internal/config uses for program-wide settings, scaled down to a flat
// string map here since std.extVar only ever returns a Jsonnet value
// built from already-known data.
type ExtVarSeed struct {
	Str  map[string]string `yaml:"str"`
	Code map[string]string `yaml:"code"`
}

// LoadExtVarSeed reads a YAML file of the form:
//
//	str:
//	  name: "raw string value"
//	code:
//	  name: "1 + 1"
//
// mirroring the reference CLI's --ext-str/--ext-code flag pair, but as a
// file a demo invocation can point at instead of repeating flags.
func LoadExtVarSeed(path string) (*ExtVarSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seed := &ExtVarSeed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, err
	}
	return seed, nil
}
