package loader

import (
	"fmt"
	"strings"

	"github.com/ops-vhost/pkg/config"
	"github.com/ops-vhost/pkg/logging"
	"github.com/ops-vhost/pkg/registry"
	"github.com/ops-vhost/pkg/routing"
	"github.com/ops-vhost/pkg/types"
)

// RedirectTarget is where enforcing templates send plain http requests.
const RedirectTarget = "https://$host$request_uri"

// Step is one registration derived from a configured server.
type Step struct {
	Server  int    // index in Config.Servers
	Name    string // server display name
	Request registry.Request
	Policy  registry.OverwritePolicy
}

// Plan is the ordered list of registrations for a configuration plus the
// per-host directives emitted in tls server blocks.
type Plan struct {
	Steps         []Step
	TLSDirectives map[string][]string
}

// Registrar is the part of the registry a plan is applied to.
type Registrar interface {
	Add(req registry.Request, policy registry.OverwritePolicy) error
}

// Build expands every server of cfg through its template.
func Build(cfg *config.Config) (*Plan, error) {
	policy, err := cfg.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("%w: output.policy: %w", config.ErrInvalidConfig, err)
	}

	plan := &Plan{TLSDirectives: map[string][]string{}}
	for idx, srv := range cfg.Servers {
		tmpl, ok := cfg.Templates[srv.Template]
		if !ok {
			return nil, fmt.Errorf("%w: servers[%d] %s: unknown template %q", config.ErrInvalidConfig, idx, srv.DisplayName(), srv.Template)
		}
		backend, err := routing.NewBackend(srv.Backend)
		if err != nil {
			return nil, fmt.Errorf("servers[%d] %s: %w", idx, srv.DisplayName(), err)
		}

		hosts := make([]string, 0, len(srv.Host))
		for _, h := range srv.Host {
			hosts = append(hosts, strings.TrimSpace(h))
		}

		httpIface := types.HTTP(tmpl.Port.HTTP)
		httpsIface := types.HTTPS(tmpl.Port.HTTPS)

		var ifaces []types.Interface
		redirect := false
		switch tmpl.HTTPS.Mode {
		case config.HTTPSDisabled:
			ifaces = []types.Interface{httpIface}
		case config.HTTPSOnly:
			ifaces = []types.Interface{httpsIface}
		case config.HTTPSCompatible:
			ifaces = []types.Interface{httpIface, httpsIface}
		case config.HTTPSEnforcing, config.HTTPSHSTS:
			ifaces = []types.Interface{httpsIface}
			redirect = true
		default:
			return nil, fmt.Errorf("%w: servers[%d] %s: unknown https mode %q", config.ErrInvalidConfig, idx, srv.DisplayName(), tmpl.HTTPS.Mode)
		}

		plan.Steps = append(plan.Steps, Step{
			Server: idx,
			Name:   srv.DisplayName(),
			Request: registry.Request{
				Hosts:      hosts,
				Interfaces: ifaces,
				Location:   srv.Location,
				Backend:    backend,
			},
			Policy: policy,
		})

		if redirect {
			// Ignore: several servers on one host share the same redirect
			plan.Steps = append(plan.Steps, Step{
				Server: idx,
				Name:   srv.DisplayName(),
				Request: registry.Request{
					Hosts:      hosts,
					Interfaces: []types.Interface{httpIface},
					Backend:    &routing.Rewrite{Target: RedirectTarget, Code: 301},
				},
				Policy: registry.PolicyIgnore,
			})
		}

		if tmpl.HTTPS.Mode == config.HTTPSHSTS && tmpl.HTTPS.HSTS != nil {
			directive := fmt.Sprintf("add_header Strict-Transport-Security %q;", tmpl.HTTPS.HSTS.Header())
			for _, h := range hosts {
				plan.addTLSDirective(h, directive)
			}
		}
	}
	return plan, nil
}

func (p *Plan) addTLSDirective(host, directive string) {
	for _, d := range p.TLSDirectives[host] {
		if d == directive {
			return
		}
	}
	p.TLSDirectives[host] = append(p.TLSDirectives[host], directive)
}

// Apply adds the plan steps to reg in order, stopping at the first error.
func (p *Plan) Apply(reg Registrar) error {
	for _, s := range p.Steps {
		if err := reg.Add(s.Request, s.Policy); err != nil {
			return fmt.Errorf("servers[%d] %s: %w", s.Server, s.Name, err)
		}
		logging.Debugf("[loader] registered server=%s hosts=%v interfaces=%v location=%q backend=%s",
			s.Name, s.Request.Hosts, s.Request.Interfaces, s.Request.Location, s.Request.Backend.Key())
	}
	logging.Logf("[loader] applied %d registration(s)", len(p.Steps))
	return nil
}
