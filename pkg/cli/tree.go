package cli

import "strings"

// IsGroup reports whether the node is a group.
func (d *CommandDefinition) IsGroup() bool {
	return d != nil && d.Type == CommandTypeGroup
}

// Matches reports whether name equals the node's name or one of its aliases,
// ignoring case.
func (d *CommandDefinition) Matches(name string) bool {
	if d == nil {
		return false
	}
	if strings.EqualFold(d.Name, name) {
		return true
	}
	for _, alias := range d.Aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

// Child returns the first direct child matching name, or nil.
func (d *CommandDefinition) Child(name string) *CommandDefinition {
	if d == nil {
		return nil
	}
	for _, child := range d.Children {
		if child.Matches(name) {
			return child
		}
	}
	return nil
}

// Find walks the path of names from this node and returns the node it ends on.
func (d *CommandDefinition) Find(path ...string) *CommandDefinition {
	node := d
	for _, name := range path {
		node = node.Child(name)
		if node == nil {
			return nil
		}
	}
	return node
}

// Walk visits the node and all descendants depth first. Returning false from
// fn skips the node's children.
func (d *CommandDefinition) Walk(fn func(node *CommandDefinition, depth int) bool) {
	d.walk(fn, 1)
}

func (d *CommandDefinition) walk(fn func(*CommandDefinition, int) bool, depth int) {
	if d == nil {
		return
	}
	if !fn(d, depth) {
		return
	}
	for _, child := range d.Children {
		child.walk(fn, depth+1)
	}
}

// Clone returns a deep copy of the tree rooted at d.
func (d *CommandDefinition) Clone() *CommandDefinition {
	if d == nil {
		return nil
	}
	c := *d
	c.Aliases = append([]string(nil), d.Aliases...)
	c.Positionals = cloneOptions(d.Positionals)
	c.Options = cloneOptions(d.Options)
	if d.Profile != nil {
		c.Profile = &ProfileDependency{
			Required: append([]string(nil), d.Profile.Required...),
			Optional: append([]string(nil), d.Profile.Optional...),
		}
	}
	if d.Children != nil {
		c.Children = make([]*CommandDefinition, len(d.Children))
		for i, child := range d.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

func cloneOptions(opts []*OptionDefinition) []*OptionDefinition {
	if opts == nil {
		return nil
	}
	out := make([]*OptionDefinition, len(opts))
	for i, o := range opts {
		if o == nil {
			continue
		}
		cp := *o
		cp.Aliases = append([]string(nil), o.Aliases...)
		cp.AllowableValues = append([]string(nil), o.AllowableValues...)
		out[i] = &cp
	}
	return out
}

// NewRoot returns an empty root group with a non-nil children slice.
func NewRoot(name, description string) *CommandDefinition {
	return &CommandDefinition{
		Name:        name,
		Type:        CommandTypeGroup,
		Description: description,
		Children:    []*CommandDefinition{},
	}
}
