package simulator

import (
	"bufio"
	"fmt"
	"io"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings matches the field-naming convention the teacher's
// gprobeConfig loader uses (cmd/gprobe/config.go): TOML keys mirror Go
// struct field names exactly, and an unrecognized field is a hard
// error rather than silently ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// SimulatorOptions holds the runtime options the core engine itself
// does not fix (spec.md explicitly keeps logging cadence, batch size,
// and the RNG source external to the core): log cadence, OUT text
// batch size, the run-loop's default step bound, and the PRNG seed.
type SimulatorOptions struct {
	LogFrequencySeconds int    `toml:",omitempty"`
	TextBatchSize       int    `toml:",omitempty"`
	MaxRunSteps         int64  `toml:",omitempty"`
	Seed                string `toml:",omitempty"`
}

// DefaultOptions returns the options a freshly constructed Simulator
// uses when none are supplied.
func DefaultOptions() SimulatorOptions {
	return SimulatorOptions{
		LogFrequencySeconds: 5,
		TextBatchSize:       512,
		MaxRunSteps:         1_000_000, // spec.md §4.10's default MAX_STEPS
		Seed:                "opnet",
	}
}

// LoadOptionsTOML decodes options from r, matching the teacher's
// loadConfig (cmd/gprobe/config.go): start from defaults, then
// overwrite with whatever the file specifies.
func LoadOptionsTOML(r io.Reader) (SimulatorOptions, error) {
	opts := DefaultOptions()
	if err := tomlSettings.NewDecoder(bufio.NewReader(r)).Decode(&opts); err != nil {
		return SimulatorOptions{}, err
	}
	return opts, nil
}

// SaveOptionsTOML encodes opts to w.
func SaveOptionsTOML(w io.Writer, opts SimulatorOptions) error {
	return tomlSettings.NewEncoder(w).Encode(&opts)
}
