package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ops-vhost/pkg/types"
	"gopkg.in/yaml.v3"
)

// ErrRender is matched (errors.Is) by every *RenderError.
var ErrRender = errors.New("backend render failed")

// ErrUnknownBackend is returned by NewBackend for an unsupported type.
var ErrUnknownBackend = errors.New("unknown backend type")

// DefaultRewriteCode is used when a rewrite backend sets no code.
const DefaultRewriteCode = 302

// Backend type names used in configuration.
const (
	TypeProxy   = "proxy"
	TypeRewrite = "rewrite"
	TypeFile    = "file"
)

// RenderError reports a backend that cannot be turned into directives.
type RenderError struct {
	Key    string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render backend %s: %s", e.Key, e.Reason)
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

// BackendConfig is the configuration form of a backend. A bare scalar decodes
// as a file root with that path.
type BackendConfig struct {
	Type   string `yaml:"type"`             // proxy | rewrite | file
	Target string `yaml:"target,omitempty"` // proxy / rewrite target
	Code   int    `yaml:"code,omitempty"`   // rewrite status code, default 302
	Path   string `yaml:"path,omitempty"`   // file root
}

// UnmarshalYAML accepts either a mapping or a plain string (file root).
func (c *BackendConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var path string
		if err := value.Decode(&path); err != nil {
			return err
		}
		*c = BackendConfig{Type: TypeFile, Path: path}
		return nil
	}
	type plain BackendConfig
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = BackendConfig(p)
	return nil
}

// NewBackend builds the backend described by cfg.
func NewBackend(cfg BackendConfig) (types.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeProxy:
		return &Proxy{Target: strings.TrimSpace(cfg.Target)}, nil
	case TypeRewrite:
		code := cfg.Code
		if code == 0 {
			code = DefaultRewriteCode
		}
		return &Rewrite{Target: strings.TrimSpace(cfg.Target), Code: code}, nil
	case TypeFile:
		return &FileRoot{Path: strings.TrimSpace(cfg.Path)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
}

// Proxy forwards requests to Target.
type Proxy struct {
	Target string
}

func (p *Proxy) Key() string {
	return "proxy:" + p.Target
}

// Render emits proxy_pass. Targets without a scheme are treated as http
// addresses and normalized with NormalizeBackendAddr.
func (p *Proxy) Render() (string, error) {
	target := strings.TrimSpace(p.Target)
	if target == "" {
		return "", &RenderError{Key: p.Key(), Reason: "empty proxy target"}
	}
	if !strings.Contains(target, "://") {
		target = "http://" + NormalizeBackendAddr(target, "127.0.0.1")
	}
	return fmt.Sprintf("proxy_pass %s;", EscapeNginxString(target)), nil
}

// Rewrite redirects requests to Target with status Code.
type Rewrite struct {
	Target string
	Code   int
}

func (r *Rewrite) Key() string {
	return fmt.Sprintf("rewrite:%d:%s", r.Code, r.Target)
}

func (r *Rewrite) Render() (string, error) {
	if strings.TrimSpace(r.Target) == "" {
		return "", &RenderError{Key: r.Key(), Reason: "empty rewrite target"}
	}
	switch r.Code {
	case 301, 302, 303, 307, 308:
	default:
		return "", &RenderError{Key: r.Key(), Reason: fmt.Sprintf("unsupported redirect code %d", r.Code)}
	}
	return fmt.Sprintf("return %d %s;", r.Code, EscapeNginxString(r.Target)), nil
}

// FileRoot serves static files from Path.
type FileRoot struct {
	Path string
}

func (f *FileRoot) Key() string {
	return "file:" + f.Path
}

func (f *FileRoot) Render() (string, error) {
	if strings.TrimSpace(f.Path) == "" {
		return "", &RenderError{Key: f.Key(), Reason: "empty file root"}
	}
	return fmt.Sprintf("root %s;", EscapeNginxString(f.Path)), nil
}
