package registry

import (
	"fmt"
	"strings"

	"github.com/ops-vhost/pkg/logging"
	"github.com/ops-vhost/pkg/types"
)

// Request asks for Backend to be attached at Location for every pair of
// Hosts × Interfaces. An empty Location targets the default slot.
type Request struct {
	Hosts      []string
	Interfaces []types.Interface
	Location   string
	Backend    types.Backend
}

// Observer receives registry events. Events for a registration are reported
// only once it has either failed or been committed.
type Observer interface {
	RecordRegistration(policy, outcome string)
	RecordSplit(kind string)
	RecordSlotWrite(action string)
}

// Registration outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
)

// Split kinds reported to the Observer.
const (
	SplitHost      = "host"
	SplitInterface = "interface"
)

// Option configures a Registry
type Option func(*Registry)

// WithObserver attaches an observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry partitions registrations into server groups such that every
// (host, interface) pair maps to exactly one backend table.
//
// A Registry is not safe for concurrent use; callers serialize Add and Clear.
type Registry struct {
	groups   []*Group
	observer Observer
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pair is a worklist item: hosts that still need interfaces resolved.
type pair struct {
	hosts      []string
	interfaces []types.Interface
}

// walk accumulates the effects of one Add until it is committed.
type walk struct {
	splits map[string]int
	slots  map[slotAction]int
}

// Add attaches req.Backend to req.Location for every host × interface pair of
// the request, splitting existing groups that only partially overlap it.
//
// Pairs are processed front to back, hosts left to right, groups oldest
// first. The walk runs on a copy of the group sequence: on error the registry
// is unchanged.
func (r *Registry) Add(req Request, policy OverwritePolicy) error {
	if err := validate(req); err != nil {
		r.recordOutcome(policy, OutcomeInvalid)
		return err
	}

	groups := make([]*Group, len(r.groups))
	for i, g := range r.groups {
		groups[i] = g.clone()
	}
	w := &walk{splits: map[string]int{}, slots: map[slotAction]int{}}

	queue := []pair{{hosts: uniqueHosts(req.Hosts), interfaces: uniqueInterfaces(req.Interfaces)}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		logging.Debugf("[registry] processing pair hosts=%v interfaces=%v", p.hosts, p.interfaces)

		remaining := append([]string(nil), p.hosts...)
		for _, host := range p.hosts {
			if !containsHost(remaining, host) {
				// consumed together with an earlier host of this pair
				continue
			}

			// groups created by splits; appended once the scan is done
			var pending []*Group
			for _, g := range groups {
				if !g.HasHost(host) {
					continue
				}
				var knownIfaces, unknownIfaces []types.Interface
				for _, i := range p.interfaces {
					if g.HasInterface(i) {
						knownIfaces = append(knownIfaces, i)
					} else {
						unknownIfaces = append(unknownIfaces, i)
					}
				}
				if len(knownIfaces) == 0 {
					continue
				}

				var knownHosts, otherHosts []string
				for _, h := range g.Hosts {
					if containsHost(remaining, h) {
						knownHosts = append(knownHosts, h)
					} else {
						otherHosts = append(otherHosts, h)
					}
				}
				var otherIfaces []types.Interface
				for _, i := range g.Interfaces {
					if !containsInterface(knownIfaces, i) {
						otherIfaces = append(otherIfaces, i)
					}
				}
				remaining = removeHosts(remaining, knownHosts)

				if len(otherHosts) > 0 {
					split := g.clone()
					split.Hosts = otherHosts
					g.Hosts = knownHosts
					pending = append(pending, split)
					w.splits[SplitHost]++
					logging.Debugf("[registry] host split kept=%s split=%s", g, split)
				}
				if len(otherIfaces) > 0 {
					split := g.clone()
					split.Interfaces = otherIfaces
					g.Interfaces = knownIfaces
					pending = append(pending, split)
					w.splits[SplitInterface]++
					logging.Debugf("[registry] interface split kept=%s split=%s", g, split)
				}

				action, err := g.apply(req.Location, req.Backend, policy)
				if err != nil {
					r.recordOutcome(policy, OutcomeConflict)
					return err
				}
				w.slots[action]++
				logging.Debugf("[registry] slot %s group=%s location=%q backend=%s", action, g, req.Location, req.Backend.Key())

				if len(unknownIfaces) > 0 {
					logging.Debugf("[registry] new pair hosts=%v interfaces=%v", knownHosts, unknownIfaces)
					queue = append(queue, pair{hosts: append([]string(nil), knownHosts...), interfaces: unknownIfaces})
				}
				// every pair of knownHosts × pair interfaces is now resolved or queued
				break
			}
			groups = append(groups, pending...)
		}

		if len(remaining) > 0 {
			g := &Group{
				Hosts:      remaining,
				Interfaces: append([]types.Interface(nil), p.interfaces...),
				Locations:  map[string]types.Backend{},
			}
			action, err := g.apply(req.Location, req.Backend, policy)
			if err != nil {
				r.recordOutcome(policy, OutcomeConflict)
				return err
			}
			w.slots[action]++
			groups = append(groups, g)
			logging.Debugf("[registry] created group=%s", g)
		}
	}

	r.groups = groups
	r.commit(policy, w)
	return nil
}

// Clear removes all groups.
func (r *Registry) Clear() {
	r.groups = nil
}

// Snapshot returns a copy of the current group sequence. Backends are shared
// with the registry.
func (r *Registry) Snapshot() []Group {
	out := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, *g.clone())
	}
	return out
}

// Len returns the number of groups.
func (r *Registry) Len() int {
	return len(r.groups)
}

// Stats summarizes the registry contents.
type Stats struct {
	Groups     int
	Hosts      int
	Interfaces int
	Locations  int
	Defaults   int
}

// Stats counts groups, distinct hosts, distinct interfaces, location entries
// and default backends.
func (r *Registry) Stats() Stats {
	hosts := map[string]struct{}{}
	ifaces := map[types.Interface]struct{}{}
	s := Stats{Groups: len(r.groups)}
	for _, g := range r.groups {
		for _, h := range g.Hosts {
			hosts[h] = struct{}{}
		}
		for _, i := range g.Interfaces {
			ifaces[i] = struct{}{}
		}
		s.Locations += len(g.Locations)
		if g.Default != nil {
			s.Defaults++
		}
	}
	s.Hosts = len(hosts)
	s.Interfaces = len(ifaces)
	return s
}

// TableLines returns one line per group in registry order, suitable for logs.
func (r *Registry) TableLines() []string {
	if len(r.groups) == 0 {
		return []string{"groups=[]"}
	}
	lines := make([]string, 0, len(r.groups))
	for idx, g := range r.groups {
		slots := make([]string, 0, len(g.Locations)+1)
		if g.Default != nil {
			slots = append(slots, "<default>->"+g.Default.Key())
		}
		for _, p := range g.Paths() {
			slots = append(slots, p+"->"+g.Locations[p].Key())
		}
		lines = append(lines, fmt.Sprintf("group[%d] %s slots=[%s]", idx, g, strings.Join(slots, ",")))
	}
	return lines
}

func (r *Registry) commit(policy OverwritePolicy, w *walk) {
	if r.observer == nil {
		return
	}
	r.observer.RecordRegistration(policy.String(), OutcomeOK)
	for kind, n := range w.splits {
		for i := 0; i < n; i++ {
			r.observer.RecordSplit(kind)
		}
	}
	for action, n := range w.slots {
		for i := 0; i < n; i++ {
			r.observer.RecordSlotWrite(string(action))
		}
	}
}

func (r *Registry) recordOutcome(policy OverwritePolicy, outcome string) {
	if r.observer != nil {
		r.observer.RecordRegistration(policy.String(), outcome)
	}
}

func validate(req Request) error {
	if len(req.Hosts) == 0 {
		return fmt.Errorf("%w: host is empty list", ErrInvalidInput)
	}
	if len(req.Interfaces) == 0 {
		return fmt.Errorf("%w: interface is empty list", ErrInvalidInput)
	}
	if req.Backend == nil {
		return fmt.Errorf("%w: backend is nil", ErrInvalidInput)
	}
	return nil
}

func uniqueHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if !containsHost(out, h) {
			out = append(out, h)
		}
	}
	return out
}

func uniqueInterfaces(ifaces []types.Interface) []types.Interface {
	out := make([]types.Interface, 0, len(ifaces))
	for _, i := range ifaces {
		if !containsInterface(out, i) {
			out = append(out, i)
		}
	}
	return out
}

func containsHost(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}
	return false
}

func containsInterface(ifaces []types.Interface, iface types.Interface) bool {
	for _, i := range ifaces {
		if i == iface {
			return true
		}
	}
	return false
}

func removeHosts(hosts, drop []string) []string {
	out := hosts[:0]
	for _, h := range hosts {
		if !containsHost(drop, h) {
			out = append(out, h)
		}
	}
	return out
}
