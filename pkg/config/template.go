package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// HTTPS modes of an http template.
const (
	HTTPSOnly       = "only"       // https only
	HTTPSHSTS       = "hsts"       // https + Strict-Transport-Security, http redirects
	HTTPSEnforcing  = "enforcing"  // https, http redirects
	HTTPSCompatible = "compatible" // http and https side by side
	HTTPSDisabled   = "disabled"   // http only
)

// httpsAliases maps accepted spellings to their mode.
var httpsAliases = map[string]string{
	HTTPSOnly:       HTTPSOnly,
	HTTPSHSTS:       HTTPSHSTS,
	HTTPSEnforcing:  HTTPSEnforcing,
	"override":      HTTPSEnforcing,
	"yes":           HTTPSEnforcing,
	HTTPSCompatible: HTTPSCompatible,
	HTTPSDisabled:   HTTPSDisabled,
	"no":            HTTPSDisabled,
}

// HTTPSMode is the https setting of a template. It decodes from a scalar
// ("compatible", "only", ...) or from a mapping {hsts: {...}}.
type HTTPSMode struct {
	Mode string
	HSTS *HSTSConfig
}

// HSTSConfig Strict-Transport-Security settings
type HSTSConfig struct {
	Duration          uint64 `yaml:"duration"`
	IncludeSubDomains bool   `yaml:"includeSubDomains"`
	Preload           bool   `yaml:"preload"`
}

// Header returns the Strict-Transport-Security header value.
func (h HSTSConfig) Header() string {
	v := fmt.Sprintf("max-age=%d", h.Duration)
	if h.IncludeSubDomains {
		v += "; includeSubDomains"
	}
	if h.Preload {
		v += "; preload"
	}
	return v
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *HTTPSMode) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		mode, ok := httpsAliases[strings.ToLower(strings.TrimSpace(s))]
		if !ok {
			return fmt.Errorf("line %d: unknown https mode %q", value.Line, s)
		}
		if mode == HTTPSHSTS {
			return fmt.Errorf("line %d: https mode hsts needs a duration", value.Line)
		}
		*m = HTTPSMode{Mode: mode}
		return nil
	case yaml.MappingNode:
		var raw map[string]HSTSConfig
		if err := value.Decode(&raw); err != nil {
			return err
		}
		hsts, ok := raw[HTTPSHSTS]
		if !ok || len(raw) != 1 {
			return fmt.Errorf("line %d: https mapping must hold exactly one key %q", value.Line, HTTPSHSTS)
		}
		*m = HTTPSMode{Mode: HTTPSHSTS, HSTS: &hsts}
		return nil
	}
	return fmt.Errorf("line %d: https must be a string or a mapping", value.Line)
}

// MarshalYAML implements yaml.Marshaler
func (m HTTPSMode) MarshalYAML() (interface{}, error) {
	if m.Mode == HTTPSHSTS && m.HSTS != nil {
		return map[string]HSTSConfig{HTTPSHSTS: *m.HSTS}, nil
	}
	return m.Mode, nil
}

func (m HTTPSMode) validate() error {
	if _, ok := httpsAliases[m.Mode]; !ok {
		return fmt.Errorf("unknown https mode %q", m.Mode)
	}
	if m.Mode == HTTPSHSTS && (m.HSTS == nil || m.HSTS.Duration == 0) {
		return fmt.Errorf("https mode hsts needs a positive duration")
	}
	return nil
}

// HostList is a list of hostnames that also decodes from a single string.
type HostList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (h *HostList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*h = HostList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*h = list
		return nil
	}
	return fmt.Errorf("line %d: host must be a string or a list of strings", value.Line)
}
