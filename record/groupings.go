package record

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ManualGrouping is the namespace for user edits. It always exists.
const ManualGrouping = "Manual"

// OriginalLevel returns the namespace name for groups found at the given
// depth (1-based) of a directory tree or description file.
func OriginalLevel(level int) string {
	return "Original Level " + strconv.Itoa(level)
}

// Grouping maps group names to record ids, both in insertion order.
type Grouping struct {
	order  []string
	groups map[string][]string
}

func newGrouping() *Grouping {
	return &Grouping{groups: make(map[string][]string)}
}

// Groups returns the group names in insertion order.
func (g *Grouping) Groups() []string {
	return slices.Clone(g.order)
}

// IDs returns the ids of a group.
func (g *Grouping) IDs(group string) []string {
	return slices.Clone(g.groups[group])
}

// Len returns the number of groups.
func (g *Grouping) Len() int {
	return len(g.order)
}

func (g *Grouping) add(group, id string) {
	ids, ok := g.groups[group]
	if !ok {
		g.order = append(g.order, group)
	}
	g.groups[group] = append(ids, id)
}

// Groupings is an ordered set of named grouping namespaces.
type Groupings struct {
	order  []string
	spaces map[string]*Grouping
}

// NewGroupings returns groupings holding only the empty Manual namespace.
func NewGroupings() *Groupings {
	g := &Groupings{spaces: make(map[string]*Grouping)}
	g.ensure(ManualGrouping)
	return g
}

func (g *Groupings) ensure(namespace string) *Grouping {
	if sp, ok := g.spaces[namespace]; ok {
		return sp
	}
	sp := newGrouping()
	g.spaces[namespace] = sp
	g.order = append(g.order, namespace)
	return sp
}

// Names returns the namespace names in creation order.
func (g *Groupings) Names() []string {
	return slices.Clone(g.order)
}

// Get returns a namespace.
func (g *Groupings) Get(namespace string) (*Grouping, bool) {
	sp, ok := g.spaces[namespace]
	return sp, ok
}

// Add appends id to group within namespace, creating both as needed.
func (g *Groupings) Add(namespace, group, id string) {
	g.ensure(namespace).add(group, id)
}

// Group is one named group of a namespace, used to replace a namespace wholesale.
type Group struct {
	Name string   `json:"name"`
	IDs  []string `json:"ids"`
}

// Set replaces (or creates) a namespace with the given groups.
func (g *Groupings) Set(namespace string, groups []Group) {
	sp := g.ensure(namespace)
	*sp = *newGrouping()
	for _, grp := range groups {
		if _, ok := sp.groups[grp.Name]; !ok {
			sp.order = append(sp.order, grp.Name)
		}
		sp.groups[grp.Name] = append(sp.groups[grp.Name], grp.IDs...)
	}
}

// Delete removes a namespace. The Manual namespace cannot be removed.
func (g *Groupings) Delete(namespace string) {
	if namespace == ManualGrouping {
		return
	}
	if _, ok := g.spaces[namespace]; !ok {
		return
	}
	delete(g.spaces, namespace)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == namespace })
}

// Rekey renames ids according to mapping; ids without an entry are kept.
func (g *Groupings) Rekey(mapping map[string]string) {
	for _, sp := range g.spaces {
		for _, ids := range sp.groups {
			for i, id := range ids {
				if renamed, ok := mapping[id]; ok {
					ids[i] = renamed
				}
			}
		}
	}
}

// Validate checks that every id in every namespace references a record of set.
func (g *Groupings) Validate(set *Set) error {
	for _, ns := range g.order {
		sp := g.spaces[ns]
		for _, group := range sp.order {
			for _, id := range sp.groups[group] {
				if _, ok := set.Get(id); !ok {
					return fmt.Errorf("%w: %q in grouping %q group %q", ErrUnknownID, id, ns, group)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g *Groupings) Clone() *Groupings {
	out := &Groupings{
		order:  slices.Clone(g.order),
		spaces: make(map[string]*Grouping, len(g.spaces)),
	}
	for name, sp := range g.spaces {
		cp := &Grouping{order: slices.Clone(sp.order), groups: make(map[string][]string, len(sp.groups))}
		for group, ids := range sp.groups {
			cp.groups[group] = slices.Clone(ids)
		}
		out.spaces[name] = cp
	}
	return out
}

type namespaceJSON struct {
	Name   string  `json:"name"`
	Groups []Group `json:"groups"`
}

// MarshalJSON encodes the namespaces as an ordered list.
func (g *Groupings) MarshalJSON() ([]byte, error) {
	out := make([]namespaceJSON, 0, len(g.order))
	for _, ns := range g.order {
		sp := g.spaces[ns]
		groups := make([]Group, 0, len(sp.order))
		for _, name := range sp.order {
			groups = append(groups, Group{Name: name, IDs: sp.groups[name]})
		}
		out = append(out, namespaceJSON{Name: ns, Groups: groups})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the ordered namespace list. Manual is always present.
func (g *Groupings) UnmarshalJSON(data []byte) error {
	var in []namespaceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = *NewGroupings()
	for _, ns := range in {
		g.Set(ns.Name, ns.Groups)
	}
	return nil
}
