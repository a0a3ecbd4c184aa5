package render

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/ops-vhost/pkg/logging"
	"github.com/ops-vhost/pkg/registry"
	"github.com/ops-vhost/pkg/routing"
	"github.com/ops-vhost/pkg/types"
)

// Options controls nginx output.
type Options struct {
	// WrapHTTP wraps all server blocks in "http { }".
	WrapHTTP bool
	// TLSDirectives are extra directives per host, emitted only in server
	// blocks that listen on an https interface.
	TLSDirectives map[string][]string
}

const serverTemplate = `server {
{{- range .Listens}}
    listen {{.}};
{{- end}}
    server_name {{.ServerName}};
{{- range .TLS}}
    {{.}}
{{- end}}
{{- if .Default}}
    # default location
    {{.Default}}
{{- end}}
{{- range .Locations}}
    location {{.Path}} {
        {{.Body}}
    }
{{- end}}
}
`

var serverTmpl = template.Must(template.New("server").Parse(serverTemplate))

type serverBlock struct {
	Listens    []string
	ServerName string
	TLS        []string
	Default    string
	Locations  []locationBlock
}

type locationBlock struct {
	Path string
	Body string
}

// Nginx renders one server block per host of every group, in registry order.
func Nginx(groups []registry.Group, opts Options) (string, error) {
	var b strings.Builder
	blocks := 0
	for gi := range groups {
		g := &groups[gi]
		for _, host := range g.Hosts {
			block, err := newServerBlock(g, host, opts)
			if err != nil {
				return "", err
			}
			if blocks > 0 {
				b.WriteString("\n")
			}
			if err := serverTmpl.Execute(&b, block); err != nil {
				return "", fmt.Errorf("render host=%s: %w", host, err)
			}
			blocks++
		}
	}
	logging.Debugf("[render] rendered %d server block(s) from %d group(s)", blocks, len(groups))

	out := b.String()
	if opts.WrapHTTP {
		out = wrapHTTP(out)
	}
	return out, nil
}

func newServerBlock(g *registry.Group, host string, opts Options) (serverBlock, error) {
	block := serverBlock{ServerName: routing.EscapeNginxString(host)}
	for _, i := range g.Interfaces {
		listen := strconv.Itoa(int(i.Port))
		if i.Attr == types.AttrHTTPS {
			listen += " ssl http2"
		}
		block.Listens = append(block.Listens, listen)
	}
	if g.HasTLS() {
		block.TLS = opts.TLSDirectives[host]
	}
	if g.Default != nil {
		body, err := g.Default.Render()
		if err != nil {
			return block, fmt.Errorf("render host=%s slot=<default>: %w", host, err)
		}
		block.Default = body
	}
	for _, p := range g.Paths() {
		body, err := g.Locations[p].Render()
		if err != nil {
			return block, fmt.Errorf("render host=%s slot=%s: %w", host, p, err)
		}
		block.Locations = append(block.Locations, locationBlock{Path: routing.EscapeNginxString(p), Body: body})
	}
	return block, nil
}

func wrapHTTP(s string) string {
	if s == "" {
		return "http {\n}\n"
	}
	var b strings.Builder
	b.WriteString("http {\n")
	for _, line := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		if line != "" {
			b.WriteString("    ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}
