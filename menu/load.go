package menu

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/authsession/permission"
)

//go:embed default_menu.yaml
var defaultMenu []byte

var (
	// ErrDuplicateKey is returned when two entries share a key.
	ErrDuplicateKey = errors.New("menu: duplicate entry key")
	// ErrUnknownPermission is returned by Validate for unregistered permissions.
	ErrUnknownPermission = errors.New("menu: unknown permission")
	// ErrUnknownPredicate is returned by Validate for unregistered predicates.
	ErrUnknownPredicate = errors.New("menu: unknown predicate")
)

type document struct {
	Menu []Entry `yaml:"menu"`
}

// LoadYAML decodes a menu tree. The document is either a list of entries or a
// mapping with a "menu" list.
func LoadYAML(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("menu: read: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("menu: decode: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var entries []Entry
	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		if err := root.Content[0].Decode(&entries); err != nil {
			return nil, fmt.Errorf("menu: decode: %w", err)
		}
	default:
		var doc document
		if err := root.Content[0].Decode(&doc); err != nil {
			return nil, fmt.Errorf("menu: decode: %w", err)
		}
		entries = doc.Menu
	}

	if err := checkKeys(entries, map[string]struct{}{}); err != nil {
		return nil, err
	}
	return entries, nil
}

// Default returns the application's built-in menu.
func Default() []Entry {
	entries, err := LoadYAML(bytes.NewReader(defaultMenu))
	if err != nil {
		panic(fmt.Sprintf("menu: built-in menu invalid: %v", err))
	}
	return entries
}

func checkKeys(entries []Entry, seen map[string]struct{}) error {
	for _, e := range entries {
		if e.Key != "" {
			if _, dup := seen[e.Key]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateKey, e.Key)
			}
			seen[e.Key] = struct{}{}
		}
		if err := checkKeys(e.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every permission the tree references is registered
// and every predicate name is known. All problems are reported together.
func Validate(entries []Entry, registry *permission.Registry, preds Predicates) error {
	var errs []error
	walk(entries, func(e Entry) {
		names := append(append([]string(nil), e.Permission...), e.ExcludePermissions...)
		for _, name := range names {
			if registry != nil && !registry.Known(name) {
				errs = append(errs, fmt.Errorf("%w: %q in entry %q", ErrUnknownPermission, name, e.Key))
			}
		}
		if e.Requires != "" {
			if _, ok := preds[e.Requires]; !ok {
				errs = append(errs, fmt.Errorf("%w: %q in entry %q", ErrUnknownPredicate, e.Requires, e.Key))
			}
		}
		if mode := strings.ToLower(e.PermissionMode); mode != "" && mode != "any" && mode != "all" {
			errs = append(errs, fmt.Errorf("menu: entry %q: invalid permissionMode %q", e.Key, e.PermissionMode))
		}
	})
	return errors.Join(errs...)
}
