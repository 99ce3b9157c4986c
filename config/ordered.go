package config

import (
	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

func errorNotAMapping(node *yaml.Node) error {
	return errors.Newf("line %d: expected a mapping", node.Line)
}

// OrderedMap preserves the insertion order of a YAML mapping's keys. Go's
// built-in map type cannot do this, and task declaration order is
// semantically meaningful (it drives panel ordering downstream), so task
// collections use this type instead of map[string]V.
type OrderedMap[V any] struct {
	order   []string
	entries map[string]V
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[V any]() OrderedMap[V] {
	return OrderedMap[V]{entries: make(map[string]V)}
}

// Set inserts or overwrites the value for name, appending name to the
// order if it is new.
func (m *OrderedMap[V]) Set(name string, v V) {
	if m.entries == nil {
		m.entries = make(map[string]V)
	}
	if _, exists := m.entries[name]; !exists {
		m.order = append(m.order, name)
	}
	m.entries[name] = v
}

// Get looks up the value for name.
func (m OrderedMap[V]) Get(name string) (V, bool) {
	v, ok := m.entries[name]
	return v, ok
}

// Names returns the keys in insertion order.
func (m OrderedMap[V]) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of entries.
func (m OrderedMap[V]) Len() int { return len(m.order) }

// UnmarshalYAML decodes a YAML mapping node into the map, preserving key
// order by walking node.Content pairs directly instead of decoding into a
// plain Go map (which would discard order).
func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errorNotAMapping(node)
	}
	*m = NewOrderedMap[V]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		var val V
		if err := valNode.Decode(&val); err != nil {
			return err
		}
		m.Set(key, val)
	}
	return nil
}
