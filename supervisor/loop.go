package supervisor

import (
	"context"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/depgraph"
	"github.com/a2y-d5l/rote/msglog"
	"github.com/a2y-d5l/rote/procrunner"
	"github.com/a2y-d5l/rote/statusreg"
	"github.com/a2y-d5l/rote/taskmgr"
	"github.com/a2y-d5l/rote/tui"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// restartFloor is the minimum interval enforced between successive spawn
// attempts for the same panel, so a command that fails to exec in a tight
// loop cannot spin the event loop.
const restartFloor = 250 * time.Millisecond

// checkStatusInterval is the cadence of the reconciliation tick.
const checkStatusInterval = 250 * time.Millisecond

// Loop is the running supervisor: one per invocation of `rote run`.
type Loop struct {
	cfg       *config.Config
	configDir string
	order     []string // full dependency-resolved task order, aggregators included
	panelOf   map[string]int
	nameOf    []string // panel index -> task name

	logs           map[string]*msglog.Log
	status         *statusreg.Registry
	tasks          *taskmgr.Manager
	instances      map[string]*procrunner.Instance
	cancels        map[string]context.CancelFunc
	exitedCh       map[string]chan struct{}
	lastSpawn      map[string]time.Time
	scroll         map[string]int
	showStdoutFlag map[string]bool
	showStderrFlag map[string]bool
	stopped        map[string]bool
	restartPending map[string]bool
	pendingRespawn map[string]bool
	prevStatus     map[string]statusreg.ProcessStatus

	activePanel int
	showStatus  bool
	dirty       bool

	shuttingDown bool

	adapter    tui.Adapter
	events     chan Event
	procEvents chan procrunner.Event
	factory    procrunner.Factory
	logger     *zap.Logger
}

// New resolves targets against cfg and builds a Loop ready to Run. Every
// task with an action (Ensure or Run) in the resolved order gets a panel, in
// configuration order; aggregators (no action) get a status entry only.
func New(cfg *config.Config, configDir string, targets []string, adapter tui.Adapter, logger *zap.Logger, factory procrunner.Factory) (*Loop, error) {
	order, err := depgraph.Resolve(cfg, targets)
	if err != nil {
		return nil, errors.Wrap(err, "resolve dependencies")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if factory == nil {
		factory = procrunner.DefaultFactory
	}

	l := &Loop{
		cfg:            cfg,
		configDir:      configDir,
		order:          order,
		panelOf:        make(map[string]int),
		logs:           make(map[string]*msglog.Log),
		status:         statusreg.New(),
		instances:      make(map[string]*procrunner.Instance),
		cancels:        make(map[string]context.CancelFunc),
		exitedCh:       make(map[string]chan struct{}),
		lastSpawn:      make(map[string]time.Time),
		scroll:         make(map[string]int),
		showStdoutFlag: make(map[string]bool),
		showStderrFlag: make(map[string]bool),
		stopped:        make(map[string]bool),
		restartPending: make(map[string]bool),
		pendingRespawn: make(map[string]bool),
		prevStatus:     make(map[string]statusreg.ProcessStatus),
		adapter:        adapter,
		events:         make(chan Event, 1024),
		procEvents:     make(chan procrunner.Event, 4096),
		factory:        factory,
		logger:         logger,
	}

	inOrder := make(map[string]bool, len(order))
	for _, name := range order {
		inOrder[name] = true
	}

	var panelNames []string
	for _, name := range cfg.Tasks.Names() {
		if !inOrder[name] {
			continue
		}
		task, _ := cfg.Tasks.Get(name)
		l.status.UpsertWithAction(name, statusreg.NotStarted, task.Action.Kind)
		l.status.UpdateDependencies(name, task.Require)

		if !task.HasAction() {
			continue
		}
		l.panelOf[name] = len(panelNames)
		panelNames = append(panelNames, name)
		l.logs[name] = msglog.New()
		l.showStdoutFlag[name] = task.Display.Stdout
		l.showStderrFlag[name] = task.Display.Stderr
	}
	l.nameOf = panelNames

	taskToPanel := make(map[string]int, len(l.panelOf))
	for name, idx := range l.panelOf {
		taskToPanel[name] = idx
	}
	l.tasks = taskmgr.New(order, taskToPanel)

	return l, nil
}

// Status returns a snapshot of every task's current status, in
// configuration order. Exposed for callers (tests, a future `rote status`
// leaf) that need the rollup without driving the UI.
func (l *Loop) Status() []statusreg.Entry {
	return l.status.Entries()
}
