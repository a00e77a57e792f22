package menu

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions is a permission requirement. In YAML it may be written as a
// single string or a list.
type Permissions []string

// UnmarshalYAML accepts a scalar or a sequence.
func (p *Permissions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = nil
			return nil
		}
		*p = Permissions{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = Permissions(list)
		return nil
	}
	return fmt.Errorf("menu: line %d: permission must be a string or a list", node.Line)
}

// Entry is one menu node. Entries with Children form a group.
type Entry struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href,omitempty" json:"href,omitempty"`
	Icon  string `yaml:"icon,omitempty" json:"icon,omitempty"`

	Permission     Permissions `yaml:"permission,omitempty" json:"permission,omitempty"`
	PermissionMode string      `yaml:"permissionMode,omitempty" json:"permissionMode,omitempty"`
	// ExcludePermissions hides the entry when any of them is held.
	ExcludePermissions []string `yaml:"excludePermissions,omitempty" json:"excludePermissions,omitempty"`
	Hidden             bool     `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	// Requires names a predicate registered in [Predicates].
	Requires string `yaml:"requires,omitempty" json:"requires,omitempty"`
	// MatchDescendants makes the entry active for every path below Href.
	MatchDescendants bool `yaml:"matchDescendants,omitempty" json:"matchDescendants,omitempty"`

	Children []Entry `yaml:"children,omitempty" json:"children,omitempty"`
}

// IsGroup reports whether e has children.
func (e Entry) IsGroup() bool {
	return len(e.Children) > 0
}

func (e Entry) clone() Entry {
	out := e
	out.Permission = append(Permissions(nil), e.Permission...)
	out.ExcludePermissions = append([]string(nil), e.ExcludePermissions...)
	out.Children = nil
	return out
}
