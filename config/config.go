// Package config models the declarative task file that drives the
// supervisor: a set of named tasks, their actions (Ensure/Run/aggregator),
// dependencies, healthchecks and display preferences.
//
// This is a pure data model: it knows how to decode a YAML document into a
// Config, and nothing about processes, scheduling or rendering. Task
// insertion order is preserved because it drives panel ordering downstream
// (see OrderedMap).
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// Display controls which output streams a task's panel shows.
type Display struct {
	Stdout bool
	Stderr bool
}

// DefaultDisplay is used when a task entry omits `display:` entirely.
var DefaultDisplay = Display{Stdout: true, Stderr: true}

// ActionKind distinguishes the three shapes a task's action can take.
type ActionKind int

const (
	// ActionNone marks an aggregator: no process is ever spawned.
	ActionNone ActionKind = iota
	// ActionEnsure marks a short-lived process expected to finish.
	ActionEnsure
	// ActionRun marks a long-lived process.
	ActionRun
)

func (k ActionKind) String() string {
	switch k {
	case ActionEnsure:
		return "ensure"
	case ActionRun:
		return "run"
	default:
		return "none"
	}
}

// CommandValue is either a literal shell command string or a boolean, which
// desugars to the shell commands "true"/"false".
type CommandValue struct {
	isBool bool
	bval   bool
	sval   string
}

// AsCommand returns the string form of the command value.
func (c CommandValue) AsCommand() string {
	if c.isBool {
		if c.bval {
			return "true"
		}
		return "false"
	}
	return c.sval
}

// UnmarshalYAML implements dynamic string|bool typing for a command value.
func (c *CommandValue) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if err := node.Decode(&b); err == nil {
		*c = CommandValue{isBool: true, bval: b}
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return errors.Wrap(err, "command value must be a string or a boolean")
	}
	*c = CommandValue{sval: s}
	return nil
}

// Action is the action a task performs: Ensure(command), Run(command), or
// the zero value for an absent action (pure aggregator).
type Action struct {
	Kind    ActionKind
	Command CommandValue
}

// HealthcheckMethodKind distinguishes Cmd vs. built-in tool healthchecks.
type HealthcheckMethodKind int

const (
	// HealthcheckCmd runs a shell command; exit code 0 means healthy.
	HealthcheckCmd HealthcheckMethodKind = iota
	// HealthcheckIsPortOpen opens a TCP connection to 127.0.0.1:Port.
	HealthcheckIsPortOpen
)

// HealthcheckMethod is the probe a Healthcheck runs on each tick.
type HealthcheckMethod struct {
	Kind HealthcheckMethodKind
	// Cmd is populated when Kind == HealthcheckCmd.
	Cmd string
	// Port is populated when Kind == HealthcheckIsPortOpen.
	Port int
}

// Healthcheck gates a Run task's dependents until the first successful
// probe.
type Healthcheck struct {
	Method   HealthcheckMethod
	Interval time.Duration
}

// Task is the immutable, post-decode representation of one task entry.
type Task struct {
	Name        string
	Action      Action
	Cwd         string
	Display     Display
	Require     []string
	AutoRestart bool
	Timestamps  bool
	Healthcheck *Healthcheck
}

// HasAction reports whether the task ever spawns a process.
func (t Task) HasAction() bool { return t.Action.Kind != ActionNone }

// ResolveCwd returns the task's working directory resolved relative to
// configDir (the directory containing the configuration file), or
// configDir itself if the task did not set cwd.
func (t Task) ResolveCwd(configDir string) string {
	if t.Cwd == "" {
		return configDir
	}
	if filepath.IsAbs(t.Cwd) {
		return t.Cwd
	}
	return filepath.Join(configDir, t.Cwd)
}

// Config is the fully decoded, order-preserving task file.
type Config struct {
	Default string
	Tasks   OrderedMap[Task]
}

// rawTaskFile mirrors the on-disk YAML shape before conversion to Task.
type rawTaskFile struct {
	Default string                  `yaml:"default"`
	Tasks   OrderedMap[rawTaskEntry] `yaml:"tasks"`
}

// rawTaskEntry mirrors one `tasks:` value before conversion to Task.
type rawTaskEntry struct {
	Ensure      *CommandValue   `yaml:"ensure"`
	Run         *CommandValue   `yaml:"run"`
	Cwd         string          `yaml:"cwd"`
	Display     *[]string       `yaml:"display"`
	Require     []string        `yaml:"require"`
	AutoRestart bool            `yaml:"autorestart"`
	Timestamps  bool            `yaml:"timestamps"`
	Healthcheck *rawHealthcheck `yaml:"healthcheck"`
}

type rawHealthcheck struct {
	Cmd      string  `yaml:"cmd"`
	Tool     string  `yaml:"tool"`
	Interval float64 `yaml:"interval"`
}

func (rh *rawHealthcheck) toHealthcheck() (*Healthcheck, error) {
	if rh == nil {
		return nil, nil
	}
	if rh.Cmd == "" && rh.Tool == "" {
		return nil, errors.New("healthcheck requires exactly one of cmd or tool")
	}
	if rh.Cmd != "" && rh.Tool != "" {
		return nil, errors.New("healthcheck cannot specify both cmd and tool")
	}
	if rh.Interval <= 0 {
		return nil, errors.New("healthcheck interval must be positive")
	}

	hc := &Healthcheck{
		Interval: time.Duration(rh.Interval * float64(time.Second)),
	}
	if rh.Cmd != "" {
		hc.Method = HealthcheckMethod{Kind: HealthcheckCmd, Cmd: rh.Cmd}
		return hc, nil
	}

	var kind string
	var port int
	if _, err := fmt.Sscanf(rh.Tool, "%s %d", &kind, &port); err != nil || kind != "is-port-open" {
		return nil, errors.Newf("unsupported healthcheck tool %q (only \"is-port-open PORT\" is supported)", rh.Tool)
	}
	hc.Method = HealthcheckMethod{Kind: HealthcheckIsPortOpen, Port: port}
	return hc, nil
}

func (re rawTaskEntry) toAction() (Action, error) {
	switch {
	case re.Ensure != nil && re.Run != nil:
		return Action{}, errors.New("task cannot specify both ensure and run")
	case re.Ensure != nil:
		return Action{Kind: ActionEnsure, Command: *re.Ensure}, nil
	case re.Run != nil:
		return Action{Kind: ActionRun, Command: *re.Run}, nil
	default:
		return Action{Kind: ActionNone}, nil
	}
}

func (re rawTaskEntry) toDisplay() Display {
	if re.Display == nil {
		return DefaultDisplay
	}
	d := Display{}
	for _, s := range *re.Display {
		switch s {
		case "stdout":
			d.Stdout = true
		case "stderr":
			d.Stderr = true
		}
	}
	return d
}

// Parse decodes a YAML document into a Config, converting each raw entry
// into its typed Task form and validating healthcheck shapes.
func Parse(data []byte) (*Config, error) {
	var raw rawTaskFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file as YAML")
	}

	cfg := &Config{Default: raw.Default, Tasks: NewOrderedMap[Task]()}
	for _, name := range raw.Tasks.Names() {
		entry, _ := raw.Tasks.Get(name)

		action, err := entry.toAction()
		if err != nil {
			return nil, errors.Wrapf(err, "task %q", name)
		}
		hc, err := entry.Healthcheck.toHealthcheck()
		if err != nil {
			return nil, errors.Wrapf(err, "task %q", name)
		}

		cfg.Tasks.Set(name, Task{
			Name:        name,
			Action:      action,
			Cwd:         entry.Cwd,
			Display:     entry.toDisplay(),
			Require:     entry.Require,
			AutoRestart: entry.AutoRestart,
			Timestamps:  entry.Timestamps,
			Healthcheck: hc,
		})
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces spec.md §3's invariant that every name referenced in a
// `require` list resolves to a defined task. Cycle detection lives in
// package depgraph, which runs over a validated Config.
func validate(cfg *Config) error {
	for _, name := range cfg.Tasks.Names() {
		task, _ := cfg.Tasks.Get(name)
		for _, dep := range task.Require {
			if _, ok := cfg.Tasks.Get(dep); !ok {
				return errors.Newf("task %q requires unknown task %q", name, dep)
			}
		}
	}
	return nil
}
