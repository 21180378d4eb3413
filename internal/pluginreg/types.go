// Package pluginreg implements the plugin registry: discover native and
// scripted plugins across project/user/system tiers,
// extract their declared capabilities without needless execution, cache
// the result, and serve name/pattern lookups to the planner.
//
// Same sync.RWMutex-guarded-map-plus-logger-plus-config shape used
// elsewhere in this module, generalized from "in-process Go plugin" to
// "on-disk executable or script".
package pluginreg

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	metaValidatorOnce sync.Once
	metaValidatorInst *validator.Validate
)

// metaValidator configures and returns the shared validator instance used
// to check a plugin's declared `--meta`/inline metadata block, the same
// sync.Once-guarded singleton-plus-custom-tag idiom used elsewhere in this
// module for struct validation.
func metaValidator() *validator.Validate {
	metaValidatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("plugin_mode", func(fl validator.FieldLevel) bool {
			switch Mode(fl.Field().String()) {
			case ModeRead, ModeWrite, ModeRaw, ModeProfiles:
				return true
			default:
				return false
			}
		})
		metaValidatorInst = v
	})
	return metaValidatorInst
}

// Tier identifies which search tier a plugin was discovered in. Higher
// tiers win ties in pattern matching.
type Tier int

const (
	TierSystem Tier = iota
	TierUser
	TierProject
)

func (t Tier) String() string {
	switch t {
	case TierProject:
		return "project"
	case TierUser:
		return "user"
	case TierSystem:
		return "system"
	default:
		return "unknown"
	}
}

// PluginKind distinguishes a compiled binary from an interpreted script
// carrying an inline metadata block.
type PluginKind int

const (
	KindNative PluginKind = iota
	KindScripted
)

func (k PluginKind) String() string {
	if k == KindScripted {
		return "scripted"
	}
	return "native"
}

// Mode is one of the plugin capability modes.
type Mode string

const (
	ModeRead     Mode = "read"
	ModeWrite    Mode = "write"
	ModeRaw      Mode = "raw"
	ModeProfiles Mode = "profiles"
)

// PluginPattern is the raw pattern string as declared by the plugin,
// classification happens in internal/pattern.
type PluginPattern struct {
	Source string
}

// PluginRecord is a discovered plugin. A record is only ever constructed
// after its metadata parsed successfully in full; partial records are
// rejected by the scanner before one is built.
type PluginRecord struct {
	Name            string
	Path            string
	Kind            PluginKind
	Patterns        []PluginPattern
	Modes           []Mode
	ProfileType     string // optional; empty when the plugin bundles no profile namespace
	BundledProfiles []string
	Tier            Tier
	ModTime         int64 // Unix nanoseconds, the cache invalidation key alongside Path
}

// SupportsMode reports whether the plugin declares support for mode.
func (p *PluginRecord) SupportsMode(mode Mode) bool {
	for _, m := range p.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// meta is the wire shape of both the native `--meta` JSON payload and the
// scripted inline metadata block, prior to becoming a PluginRecord.
type meta struct {
	Name            string   `json:"name" validate:"required"`
	Patterns        []string `json:"patterns" validate:"required,min=1"`
	Modes           []string `json:"modes" validate:"required,min=1,dive,plugin_mode"`
	ProfileType     string   `json:"profile_type,omitempty"`
	BundledProfiles []string `json:"bundled_profiles,omitempty"`
}

// validate reports why m fails the metadata contract, or nil if it
// satisfies it. Uses the struct tags above rather than a hand-rolled
// field-by-field check.
func (m meta) validate() error {
	if err := metaValidator().Struct(m); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
		return &metaValidationError{msgs: msgs}
	}
	return nil
}

type metaValidationError struct{ msgs []string }

func (e *metaValidationError) Error() string {
	return "metadata failed validation: " + strings.Join(e.msgs, ", ")
}

func (m meta) toRecord(path string, kind PluginKind, tier Tier, modTime int64) *PluginRecord {
	patterns := make([]PluginPattern, len(m.Patterns))
	for i, p := range m.Patterns {
		patterns[i] = PluginPattern{Source: p}
	}
	modes := make([]Mode, len(m.Modes))
	for i, mo := range m.Modes {
		modes[i] = Mode(mo)
	}
	return &PluginRecord{
		Name:            m.Name,
		Path:            path,
		Kind:            kind,
		Patterns:        patterns,
		Modes:           modes,
		ProfileType:     m.ProfileType,
		BundledProfiles: m.BundledProfiles,
		Tier:            tier,
		ModTime:         modTime,
	}
}
