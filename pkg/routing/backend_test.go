package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBackendConfigUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want BackendConfig
	}{
		{"bare string is a file root", `/var/www/html`, BackendConfig{Type: TypeFile, Path: "/var/www/html"}},
		{"proxy", "type: proxy\ntarget: 127.20.1.1:32\n", BackendConfig{Type: TypeProxy, Target: "127.20.1.1:32"}},
		{"rewrite", "type: rewrite\ntarget: https://example.com\ncode: 301\n", BackendConfig{Type: TypeRewrite, Target: "https://example.com", Code: 301}},
		{"file", "type: file\npath: /srv\n", BackendConfig{Type: TypeFile, Path: "/srv"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got BackendConfig
			require.NoError(t, yaml.Unmarshal([]byte(tc.doc), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(BackendConfig{Type: "Rewrite", Target: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, &Rewrite{Target: "https://example.com", Code: DefaultRewriteCode}, b)
	assert.Equal(t, "rewrite:302:https://example.com", b.Key())

	_, err = NewBackend(BackendConfig{Type: "fastcgi"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		backend interface{ Render() (string, error) }
		want    string
	}{
		{"proxy host:port", &Proxy{Target: "127.20.1.1:32"}, "proxy_pass http://127.20.1.1:32;"},
		{"proxy bare port", &Proxy{Target: "3000"}, "proxy_pass http://127.0.0.1:3000;"},
		{"proxy hostname", &Proxy{Target: "app.internal"}, "proxy_pass http://app.internal:80;"},
		{"proxy url", &Proxy{Target: "https://upstream.example.com/api"}, "proxy_pass https://upstream.example.com/api;"},
		{"rewrite", &Rewrite{Target: "https://$host$request_uri", Code: 301}, "return 301 https://$host$request_uri;"},
		{"file", &FileRoot{Path: "/var/www/my site"}, `root "/var/www/my site";`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.backend.Render()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	for _, b := range []interface{ Render() (string, error) }{
		&Proxy{},
		&Rewrite{Target: "/x", Code: 200},
		&Rewrite{Code: 301},
		&FileRoot{Path: "  "},
	} {
		_, err := b.Render()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRender)
		var re *RenderError
		assert.True(t, errors.As(err, &re))
	}
}

func TestEscapeNginxString(t *testing.T) {
	tests := map[string]string{
		"example.com":   "example.com",
		"/path/to/root": "/path/to/root",
		"a b":           `"a b"`,
		"semi;colon":    `"semi;colon"`,
		`say "hi"`:      `"say \"hi\""`,
		"tab\there":     `"tab\there"`,
		"bell\x07":      `"bell\x07"`,
		`back\slash`:    `"back\\slash"`,
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, EscapeNginxString(in), "input %q", in)
	}
}

func TestNormalizeBackendAddr(t *testing.T) {
	assert.Equal(t, "localhost:6443", NormalizeBackendAddr("6443", "localhost"))
	assert.Equal(t, "example.com:80", NormalizeBackendAddr("example.com", "localhost"))
	assert.Equal(t, "localhost:8080", NormalizeBackendAddr(":8080", "localhost"))
	assert.Equal(t, "10.0.0.1:9000", NormalizeBackendAddr(" 10.0.0.1:9000 ", "localhost"))
	assert.Equal(t, "localhost:80", NormalizeBackendAddr("", "localhost"))
}

func TestParseProxyList(t *testing.T) {
	got := ParseProxyList("app.example.com:3000, git.example.com:10.0.0.2:3000,docs.example.com:docs.internal,api.example.com:https://api.internal:8443,bare.example.com,:9000", "")
	assert.Equal(t, []ProxyEntry{
		{Host: "app.example.com", Target: "127.0.0.1:3000"},
		{Host: "git.example.com", Target: "10.0.0.2:3000"},
		{Host: "docs.example.com", Target: "docs.internal:80"},
		{Host: "api.example.com", Target: "https://api.internal:8443"},
	}, got)

	got = ParseProxyList("bare.example.com", "127.0.0.1:8080")
	assert.Equal(t, []ProxyEntry{{Host: "bare.example.com", Target: "127.0.0.1:8080"}}, got)

	assert.Empty(t, ParseProxyList("  ", "x"))
}
