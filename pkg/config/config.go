package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ops-vhost/pkg/registry"
	"github.com/ops-vhost/pkg/routing"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrConfigNotFound is returned by LoadConfig when the file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Template modules. Only http exists today.
const ModuleHTTP = "http"

// DefaultProxyTemplate is the template used for VHOST_PROXY_SERVERS entries
// when VHOST_PROXY_TEMPLATE is unset.
const DefaultProxyTemplate = "default"

// Config application configuration structure
type Config struct {
	Log       LogConfig           `yaml:"log"`
	Output    OutputConfig        `yaml:"output"`
	Templates map[string]Template `yaml:"templates"`
	Servers   []Server            `yaml:"servers"`

	// ProxyTemplate is the template used for servers added from
	// VHOST_PROXY_SERVERS. Not read from the file.
	ProxyTemplate string `yaml:"-"`
}

// LogConfig log configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig controls what gets written and how conflicts are resolved.
type OutputConfig struct {
	File     string `yaml:"file"`      // Output path, "-" for stdout
	Policy   string `yaml:"policy"`    // error | ignore | overwrite
	WrapHTTP bool   `yaml:"wrap_http"` // Wrap server blocks in "http { }"
}

// Template describes how a server is exposed: which module renders it and
// on which ports / protocols it listens.
type Template struct {
	Module string     `yaml:"module"`
	HTTPS  HTTPSMode  `yaml:"https"`
	Port   PortConfig `yaml:"port"`
}

// PortConfig listening ports of a template. Zero means default.
type PortConfig struct {
	HTTP  uint16 `yaml:"http"`
	HTTPS uint16 `yaml:"https"`
}

// Server declares one backend attachment.
type Server struct {
	Name     string                `yaml:"name"`
	Template string                `yaml:"template"`
	Host     HostList              `yaml:"host"`
	Location string                `yaml:"location"`
	Backend  routing.BackendConfig `yaml:"backend"`
}

// DisplayName returns the server name, or "<anonymous>".
func (s Server) DisplayName() string {
	if s.Name == "" {
		return "<anonymous>"
	}
	return s.Name
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "vhost.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.SetDefaults()
	config.ApplyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Output.File == "" {
		c.Output.File = "-"
	}
	if c.Output.Policy == "" {
		c.Output.Policy = registry.PolicyError.String()
	}
	if c.ProxyTemplate == "" {
		c.ProxyTemplate = DefaultProxyTemplate
	}
	for name, tmpl := range c.Templates {
		c.Templates[name] = tmpl.withDefaults()
	}
}

func (t Template) withDefaults() Template {
	if t.Module == "" {
		t.Module = ModuleHTTP
	}
	if t.HTTPS.Mode == "" {
		t.HTTPS.Mode = HTTPSCompatible
	}
	if t.Port.HTTP == 0 {
		t.Port.HTTP = 80
	}
	if t.Port.HTTPS == 0 {
		t.Port.HTTPS = 443
	}
	return t
}

// GetPolicy returns the parsed overwrite policy.
func (c *Config) GetPolicy() (registry.OverwritePolicy, error) {
	return registry.ParsePolicy(c.Output.Policy)
}

// TemplateNames returns template names in sorted order.
func (c *Config) TemplateNames() []string {
	names := make([]string, 0, len(c.Templates))
	for n := range c.Templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyEnvOverrides applies environment variable overrides
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}

	if val := os.Getenv("VHOST_OUTPUT_FILE"); val != "" {
		c.Output.File = val
	}
	if val := os.Getenv("VHOST_OVERWRITE_POLICY"); val != "" {
		c.Output.Policy = strings.ToLower(val)
	}
	if val := os.Getenv("VHOST_WRAP_HTTP"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Output.WrapHTTP = b
		}
	}

	if val := os.Getenv("VHOST_PROXY_TEMPLATE"); val != "" {
		c.ProxyTemplate = val
	}
	// VHOST_PROXY_SERVERS appends proxy servers, e.g. "app.example.com:3000,git.example.com:10.0.0.2:3000"
	if val := os.Getenv("VHOST_PROXY_SERVERS"); val != "" {
		c.AddProxyServers(routing.ParseProxyList(val, os.Getenv("VHOST_PROXY_DEFAULT_TARGET")))
	}
}

// AddProxyServers appends one proxy server per entry on ProxyTemplate. The
// template is created as a plain compatible http template when missing.
func (c *Config) AddProxyServers(entries []routing.ProxyEntry) {
	if len(entries) == 0 {
		return
	}
	if c.ProxyTemplate == "" {
		c.ProxyTemplate = DefaultProxyTemplate
	}
	if c.Templates == nil {
		c.Templates = make(map[string]Template)
	}
	if _, ok := c.Templates[c.ProxyTemplate]; !ok {
		c.Templates[c.ProxyTemplate] = Template{}.withDefaults()
	}
	for _, e := range entries {
		c.Servers = append(c.Servers, Server{
			Name:     "env:" + e.Host,
			Template: c.ProxyTemplate,
			Host:     HostList{e.Host},
			Backend:  routing.BackendConfig{Type: routing.TypeProxy, Target: e.Target},
		})
	}
}

// Validate checks templates, servers and output settings.
func (c *Config) Validate() error {
	if _, err := c.GetPolicy(); err != nil {
		return fmt.Errorf("%w: output.policy: %w", ErrInvalidConfig, err)
	}
	for _, name := range c.TemplateNames() {
		tmpl := c.Templates[name]
		if tmpl.Module != ModuleHTTP {
			return fmt.Errorf("%w: templates.%s: unknown module %q", ErrInvalidConfig, name, tmpl.Module)
		}
		if err := tmpl.HTTPS.validate(); err != nil {
			return fmt.Errorf("%w: templates.%s: %w", ErrInvalidConfig, name, err)
		}
	}
	for i, srv := range c.Servers {
		if _, ok := c.Templates[srv.Template]; !ok {
			return fmt.Errorf("%w: servers[%d] %s: unknown template %q", ErrInvalidConfig, i, srv.DisplayName(), srv.Template)
		}
		if len(srv.Host) == 0 {
			return fmt.Errorf("%w: servers[%d] %s: host is required", ErrInvalidConfig, i, srv.DisplayName())
		}
		for _, h := range srv.Host {
			if strings.TrimSpace(h) == "" {
				return fmt.Errorf("%w: servers[%d] %s: empty host", ErrInvalidConfig, i, srv.DisplayName())
			}
		}
		if srv.Location != "" && !strings.HasPrefix(srv.Location, "/") {
			return fmt.Errorf("%w: servers[%d] %s: location %q must start with /", ErrInvalidConfig, i, srv.DisplayName(), srv.Location)
		}
		if _, err := routing.NewBackend(srv.Backend); err != nil {
			return fmt.Errorf("%w: servers[%d] %s: %w", ErrInvalidConfig, i, srv.DisplayName(), err)
		}
	}
	return nil
}
