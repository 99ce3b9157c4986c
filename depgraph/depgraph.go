// Package depgraph resolves a set of target task names into the minimal
// topologically-ordered list of tasks required to satisfy them, using a
// three-color depth-first traversal over the require graph declared in
// config.Config.
package depgraph

import (
	"github.com/a2y-d5l/rote/config"
	"github.com/go-faster/errors"
)

// color tracks a node's state during depth-first traversal.
type color int

const (
	white color = iota // unvisited
	gray                // on the current stack
	black               // finished
)

// UnknownTaskError reports a require entry that names no defined task.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return "unknown task: " + e.Name
}

// CircularDependencyError reports a require cycle discovered during
// traversal, naming one member of the cycle.
type CircularDependencyError struct {
	Name string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency involving task: " + e.Name
}

// Resolve returns, for the given target task names, the minimal list of all
// required tasks (targets included) in a topological order: every task
// appears after every task it requires. Among independent siblings, the
// original configuration order is preserved, because require entries are
// visited in their declared order.
func Resolve(cfg *config.Config, targets []string) ([]string, error) {
	colors := make(map[string]color, cfg.Tasks.Len())
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case black:
			return nil
		case gray:
			return errors.Wrap(&CircularDependencyError{Name: name}, "resolve dependencies")
		}

		task, ok := cfg.Tasks.Get(name)
		if !ok {
			return errors.Wrap(&UnknownTaskError{Name: name}, "resolve dependencies")
		}

		colors[name] = gray
		for _, dep := range task.Require {
			if err := visit(dep); err != nil {
				return err
			}
		}
		colors[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range targets {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
