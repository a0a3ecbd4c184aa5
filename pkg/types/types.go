package types

import "fmt"

// ProtocolAttribute tags an interface as plain HTTP or TLS. It drives the
// listen directive that gets emitted, nothing else.
type ProtocolAttribute int

const (
	AttrHTTP ProtocolAttribute = iota
	AttrHTTPS
)

func (a ProtocolAttribute) String() string {
	switch a {
	case AttrHTTP:
		return "Http"
	case AttrHTTPS:
		return "Https"
	default:
		return fmt.Sprintf("ProtocolAttribute(%d)", int(a))
	}
}

// Interface is one listening binding (port + protocol attribute).
// Values are comparable and usable as map keys.
type Interface struct {
	Port uint16
	Attr ProtocolAttribute
}

// HTTP returns a plain HTTP interface on port.
func HTTP(port uint16) Interface {
	return Interface{Port: port, Attr: AttrHTTP}
}

// HTTPS returns a TLS interface on port.
func HTTPS(port uint16) Interface {
	return Interface{Port: port, Attr: AttrHTTPS}
}

// String formats the interface as "Http:80"
func (i Interface) String() string {
	return fmt.Sprintf("%s:%d", i.Attr, i.Port)
}

// Backend describes one destination a location (or the default slot) points at.
// Implementations must be immutable once attached to a group: the same value is
// shared by every group produced from a split.
type Backend interface {
	// Key is a stable identity used in logs and diagnostics. It is not used to
	// deduplicate backends.
	Key() string
	// Render returns the backend as nginx directive text.
	Render() (string, error)
}
