package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File mirrors the command line settings in YAML form. Empty values mean
// "not set" and lose against flags and environment variables.
type File struct {
	Root       string   `yaml:"root"`
	Include    []string `yaml:"include"`
	Exclude    []string `yaml:"exclude"`
	OnCreate   string   `yaml:"on_create"`
	OnModify   string   `yaml:"on_modify"`
	OnDelete   string   `yaml:"on_delete"`
	OnChange   string   `yaml:"on_change"`
	Debounce   string   `yaml:"debounce"`
	Listen     string   `yaml:"listen"`
	Token      string   `yaml:"token"`
	MaxWatches int      `yaml:"max_watches"`
	MaxProcs   int      `yaml:"max_procs"`
	Output     string   `yaml:"output"`
}

// Load reads and strictly decodes a YAML config file. Unknown keys are
// errors so typos surface at startup instead of being ignored.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return Decode(data)
}

func Decode(data []byte) (File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return File{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := file.Validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

func (file File) Validate() error {
	if file.Debounce != "" {
		if _, err := time.ParseDuration(file.Debounce); err != nil {
			return fmt.Errorf("invalid debounce %q: %w", file.Debounce, err)
		}
	}
	if file.MaxWatches < 0 {
		return fmt.Errorf("max_watches must be >= 0")
	}
	if file.MaxProcs < 0 {
		return fmt.Errorf("max_procs must be >= 0")
	}
	if file.Output != "" && file.Output != "passthrough" && file.Output != "suppress" {
		return fmt.Errorf("invalid output %q: want passthrough or suppress", file.Output)
	}
	return nil
}

// DebounceDuration parses the debounce field. The second return is false
// when the field is unset.
func (file File) DebounceDuration() (time.Duration, bool) {
	if file.Debounce == "" {
		return 0, false
	}
	duration, err := time.ParseDuration(file.Debounce)
	if err != nil {
		return 0, false
	}
	return duration, true
}
