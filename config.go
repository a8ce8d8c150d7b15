package jbeamsync

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of an editing session. Zero-valued fields are
// filled from DefaultConfig by LoadConfig, so a partial YAML file is fine.
type Config struct {
	// IndentUnit is the number of spaces per indentation level used when
	// synthesizing rows or sections. 0 means detect from the loaded file.
	IndentUnit int `yaml:"indent_unit"`

	// PositionTolerance bounds the per-axis distance under which two
	// positions count as equal, for moves, mirror lookup and collisions.
	PositionTolerance float64 `yaml:"position_tolerance"`

	// SymmetryScheme names the left/right affix pair used to derive a
	// mirrored counterpart id, e.g. "l/r". An unparsable scheme falls back
	// to the default pair with a warning.
	SymmetryScheme string `yaml:"symmetry_scheme"`

	// NewNodePrefix prefixes generated vertex ids.
	NewNodePrefix string `yaml:"new_node_prefix"`

	// MarkerComment is the once-per-section comment placed above rows the
	// editor appends.
	MarkerComment string `yaml:"marker_comment"`

	// AffectNodeReferences makes a node deletion cascade into every beam,
	// triangle and quad row referencing it. With it off such rows are kept
	// and skipped with a warning when they would dangle.
	AffectNodeReferences bool `yaml:"affect_node_references"`

	// Debug enables the file logger and per-skip debug records.
	Debug bool `yaml:"debug"`

	// LogDir is where the debug log lands. Empty means the working
	// directory.
	LogDir string `yaml:"log_dir"`
}

// DefaultConfig returns the built-in session defaults.
func DefaultConfig() Config {
	return Config{
		IndentUnit:           0,
		PositionTolerance:    1e-4,
		SymmetryScheme:       "l/r",
		NewNodePrefix:        "n",
		MarkerComment:        "// added by editor",
		AffectNodeReferences: true,
		Debug:                false,
		LogDir:               "",
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults. A
// missing file is not an error; the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("jbeamsync: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("jbeamsync: parse config %s: %w", path, err)
	}
	if cfg.PositionTolerance <= 0 {
		cfg.PositionTolerance = DefaultConfig().PositionTolerance
	}
	if cfg.NewNodePrefix == "" {
		cfg.NewNodePrefix = DefaultConfig().NewNodePrefix
	}
	if cfg.MarkerComment == "" {
		cfg.MarkerComment = DefaultConfig().MarkerComment
	}
	return cfg, nil
}

// WriteDefaultConfig writes a commented starter config to path, refusing to
// clobber an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("jbeamsync: config %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
