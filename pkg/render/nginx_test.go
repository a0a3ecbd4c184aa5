package render

import (
	"testing"

	"github.com/ops-vhost/pkg/registry"
	"github.com/ops-vhost/pkg/routing"
	"github.com/ops-vhost/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"a.example.com", "b.example.com"},
		Interfaces: []types.Interface{types.HTTPS(443)},
		Location:   "/git",
		Backend:    &routing.Proxy{Target: "127.20.1.1:32"},
	}, registry.PolicyError))
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"a.example.com"},
		Interfaces: []types.Interface{types.HTTPS(443)},
		Backend:    &routing.FileRoot{Path: "/var/www/html"},
	}, registry.PolicyError))
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"a.example.com"},
		Interfaces: []types.Interface{types.HTTP(80)},
		Backend:    &routing.Rewrite{Target: "https://$host$request_uri", Code: 301},
	}, registry.PolicyError))
	return reg
}

const expectedNginx = `server {
    listen 443 ssl http2;
    server_name a.example.com;
    add_header Strict-Transport-Security "max-age=600";
    # default location
    root /var/www/html;
    location /git {
        proxy_pass http://127.20.1.1:32;
    }
}

server {
    listen 443 ssl http2;
    server_name b.example.com;
    location /git {
        proxy_pass http://127.20.1.1:32;
    }
}

server {
    listen 80;
    server_name a.example.com;
    # default location
    return 301 https://$host$request_uri;
}
`

func TestNginx(t *testing.T) {
	reg := buildRegistry(t)

	out, err := Nginx(reg.Snapshot(), Options{
		TLSDirectives: map[string][]string{"a.example.com": {`add_header Strict-Transport-Security "max-age=600";`}},
	})
	require.NoError(t, err)
	assert.Equal(t, expectedNginx, out)
}

func TestNginxWrapHTTP(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"h1"},
		Interfaces: []types.Interface{types.HTTP(80), types.HTTP(8080)},
		Location:   "/my docs",
		Backend:    &routing.FileRoot{Path: "/srv/docs"},
	}, registry.PolicyError))

	out, err := Nginx(reg.Snapshot(), Options{WrapHTTP: true})
	require.NoError(t, err)
	assert.Equal(t, `http {
    server {
        listen 80;
        listen 8080;
        server_name h1;
        location "/my docs" {
            root /srv/docs;
        }
    }
}
`, out)
}

func TestNginxEmpty(t *testing.T) {
	out, err := Nginx(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = Nginx(nil, Options{WrapHTTP: true})
	require.NoError(t, err)
	assert.Equal(t, "http {\n}\n", out)
}

func TestNginxTLSDirectivesOnlyOnHTTPS(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"h1"},
		Interfaces: []types.Interface{types.HTTP(80)},
		Backend:    &routing.FileRoot{Path: "/srv"},
	}, registry.PolicyError))

	out, err := Nginx(reg.Snapshot(), Options{TLSDirectives: map[string][]string{"h1": {"ssl_stapling on;"}}})
	require.NoError(t, err)
	assert.NotContains(t, out, "ssl_stapling")
}

func TestNginxBackendError(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Add(registry.Request{
		Hosts:      []string{"h1"},
		Interfaces: []types.Interface{types.HTTP(80)},
		Location:   "/broken",
		Backend:    &routing.Rewrite{Target: "/elsewhere", Code: 200},
	}, registry.PolicyError))

	_, err := Nginx(reg.Snapshot(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrRender)
	assert.ErrorContains(t, err, "host=h1 slot=/broken")
}
