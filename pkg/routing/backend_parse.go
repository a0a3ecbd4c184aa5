package routing

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ProxyEntry is one host -> proxy target mapping from a proxy list string.
type ProxyEntry struct {
	Host   string
	Target string
}

func isPortNumber(s string) bool {
	port, err := strconv.Atoi(s)
	return err == nil && port > 0 && port < 65536
}

// NormalizeBackendAddr normalizes backend address format.
// - If address is only a port number (e.g., "6443"), prepend defaultHost.
// - If address is hostname without port, append ":80".
// Returns normalized address in "host:port" format.
func NormalizeBackendAddr(addr string, defaultHost string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return net.JoinHostPort(defaultHost, "80")
	}

	if strings.Contains(addr, ":") {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return net.JoinHostPort(defaultHost, "80")
		}
		if host == "" {
			host = defaultHost
		}
		return net.JoinHostPort(host, port)
	}

	if isPortNumber(addr) {
		return net.JoinHostPort(defaultHost, addr)
	}

	return net.JoinHostPort(addr, "80")
}

// ParseProxyList parses a comma-separated list of proxied hosts (VHOST_PROXY_SERVERS).
//
// Supported formats (comma-separated):
//  1. host:port        -> proxy to 127.0.0.1:port (e.g., "app.example.com:3000")
//  2. host:addr:port   -> proxy to addr:port (e.g., "git.example.com:10.0.0.2:3000")
//  3. host:addr        -> proxy to addr:80
//  4. host:scheme://.. -> proxy to the URL as given
//
// An item without ":" proxies to defaultTarget; it is dropped when
// defaultTarget is empty.
func ParseProxyList(s string, defaultTarget string) []ProxyEntry {
	out := make([]ProxyEntry, 0)
	if strings.TrimSpace(s) == "" {
		return out
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, ":")
		if idx == -1 {
			if strings.TrimSpace(defaultTarget) == "" {
				continue
			}
			out = append(out, ProxyEntry{Host: part, Target: strings.TrimSpace(defaultTarget)})
			continue
		}

		host := strings.TrimSpace(part[:idx])
		target := strings.TrimSpace(part[idx+1:])
		if host == "" {
			continue
		}

		switch {
		case target == "":
			target = strings.TrimSpace(defaultTarget)
			if target == "" {
				continue
			}
		case strings.Contains(target, "://"):
		case !strings.Contains(target, ":") && isPortNumber(target):
			target = net.JoinHostPort("127.0.0.1", target)
		default:
			target = NormalizeBackendAddr(target, "127.0.0.1")
		}

		out = append(out, ProxyEntry{Host: host, Target: target})
	}

	return out
}

// EscapeNginxString escapes s byte by byte (tab, CR, LF, quotes and backslash
// get backslash escapes, other non-printable bytes become \xNN) and wraps the
// result in double quotes when anything was escaped or s holds a space or ';'.
func EscapeNginxString(s string) string {
	var b strings.Builder
	quote := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		var esc string
		switch {
		case ch == '\t':
			esc = `\t`
		case ch == '\r':
			esc = `\r`
		case ch == '\n':
			esc = `\n`
		case ch == '\\' || ch == '\'' || ch == '"':
			esc = `\` + string(ch)
		case ch >= 0x20 && ch < 0x7f:
			esc = string(ch)
		default:
			esc = fmt.Sprintf(`\x%02x`, ch)
		}
		if len(esc) != 1 || ch == ' ' || ch == ';' {
			quote = true
		}
		b.WriteString(esc)
	}
	if quote {
		return `"` + b.String() + `"`
	}
	return b.String()
}
