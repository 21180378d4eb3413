package jnenv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jn-toolkit/jn/internal/jnerr"
)

// Config is the one ambient on-disk settings document, `$JN_HOME/config.yaml`
// or `.jn/config.yaml`, holding process-wide defaults that
// `--strict`/`--right-limit` flags still override: a narrow settings
// document down to the two knobs jn's root command actually exposes.
type Config struct {
	Strict     bool  `yaml:"strict,omitempty"`
	RightLimit int64 `yaml:"right_limit,omitempty" validate:"omitempty,min=1"`
}

// DefaultConfig is returned when no config.yaml exists anywhere in the
// search path; its zero RightLimit means "unbounded, warn at 1,000,000",
// matching the flag default.
func DefaultConfig() Config {
	return Config{}
}

var (
	configValidatorOnce sync.Once
	configValidatorInst *validator.Validate
)

func configValidator() *validator.Validate {
	configValidatorOnce.Do(func() { configValidatorInst = validator.New() })
	return configValidatorInst
}

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// LoadConfig reads and validates the ambient config file, searching
// `.jn/config.yaml` in the innermost project root first and falling back
// to `$JN_HOME/config.yaml`. A missing file at every location is not an
// error: LoadConfig returns DefaultConfig() instead, treating config.yaml
// as an optional overlay of soft defaults rather than a required document.
func LoadConfig() (Config, error) {
	for _, path := range configSearchPath() {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, jnerr.NewDiscoveryError(path, "failed to read config file", false, err)
		}
		return parseConfig(path, data)
	}
	return DefaultConfig(), nil
}

func configSearchPath() []string {
	var paths []string
	for _, proj := range ProjectRoots("") {
		paths = append(paths, filepath.Join(proj, "config.yaml"))
	}
	paths = append(paths, filepath.Join(Home(), "config.yaml"))
	return paths
}

func parseConfig(path string, data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, jnerr.NewDiscoveryError(path, fmt.Sprintf("invalid config.yaml near line %d", extractLine(err)), false, err)
	}
	if err := configValidator().Struct(cfg); err != nil {
		return Config{}, jnerr.NewDiscoveryError(path, "config.yaml failed validation: "+err.Error(), false, err)
	}
	return cfg, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}
	m := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}
	var line int
	fmt.Sscanf(m[1], "%d", &line)
	return line
}
