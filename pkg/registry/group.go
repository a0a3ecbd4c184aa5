package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ops-vhost/pkg/types"
)

// Group is a set of hosts sharing one interface set and one backend table.
// Locations and Default apply to every host × interface pair of the group.
type Group struct {
	Hosts      []string
	Interfaces []types.Interface
	Locations  map[string]types.Backend
	Default    types.Backend
}

// HasHost reports whether host belongs to the group.
func (g *Group) HasHost(host string) bool {
	for _, h := range g.Hosts {
		if h == host {
			return true
		}
	}
	return false
}

// HasInterface reports whether iface belongs to the group.
func (g *Group) HasInterface(iface types.Interface) bool {
	for _, i := range g.Interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// HasTLS reports whether any interface of the group is Https.
func (g *Group) HasTLS() bool {
	for _, i := range g.Interfaces {
		if i.Attr == types.AttrHTTPS {
			return true
		}
	}
	return false
}

// Paths returns the location paths in sorted order.
func (g *Group) Paths() []string {
	paths := make([]string, 0, len(g.Locations))
	for p := range g.Locations {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Backend returns the backend held at location, or the default slot when
// location is empty.
func (g *Group) Backend(location string) (types.Backend, bool) {
	if location == "" {
		return g.Default, g.Default != nil
	}
	b, ok := g.Locations[location]
	return b, ok
}

func (g *Group) String() string {
	ifaces := make([]string, 0, len(g.Interfaces))
	for _, i := range g.Interfaces {
		ifaces = append(ifaces, i.String())
	}
	return fmt.Sprintf("Group{hosts=[%s], interfaces=[%s]}", strings.Join(g.Hosts, " "), strings.Join(ifaces, " "))
}

// clone copies the group. Backends are shared, not copied.
func (g *Group) clone() *Group {
	c := &Group{
		Hosts:      append([]string(nil), g.Hosts...),
		Interfaces: append([]types.Interface(nil), g.Interfaces...),
		Locations:  make(map[string]types.Backend, len(g.Locations)),
		Default:    g.Default,
	}
	for p, b := range g.Locations {
		c.Locations[p] = b
	}
	return c
}

// slotAction is what applying a backend to a slot did.
type slotAction string

const (
	slotSet      slotAction = "set"
	slotKept     slotAction = "kept"
	slotReplaced slotAction = "replaced"
)

// apply installs backend at location (default slot when empty) according to policy.
func (g *Group) apply(location string, backend types.Backend, policy OverwritePolicy) (slotAction, error) {
	_, occupied := g.Backend(location)
	action := slotSet
	if occupied {
		switch policy {
		case PolicyIgnore:
			return slotKept, nil
		case PolicyOverwrite:
			action = slotReplaced
		default:
			slot := location
			if slot == "" {
				slot = "<default>"
			}
			return "", fmt.Errorf("%w: group=%s location=%s", ErrAlreadyExists, g, slot)
		}
	}
	if location == "" {
		g.Default = backend
	} else {
		g.Locations[location] = backend
	}
	return action, nil
}
