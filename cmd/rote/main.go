// Command rote runs a set of declared tasks concurrently, enforcing their
// dependency order, and renders their output either full-screen (TTY) or as
// an incremental log stream (non-TTY), per the configuration file's task
// graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/rlog"
	"github.com/a2y-d5l/rote/supervisor"
	"github.com/a2y-d5l/rote/tools"
	"github.com/a2y-d5l/rote/tui"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(newRootCmd().run())
}

// rootCmd wraps the cobra command tree plus the shared run flags, since the
// top level and its explicit "run" subcommand accept the same arguments.
type rootCmd struct {
	cmd *cobra.Command

	configPath      string
	logFile         string
	generateExample bool

	toolWait     bool
	toolInterval time.Duration
}

func newRootCmd() *rootCmd {
	rc := &rootCmd{}

	root := &cobra.Command{
		Use:   "rote [services...]",
		Short: "Run declared tasks concurrently, honoring their dependency graph",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return exitErr(rc.runMain(args))
		},
	}
	root.Flags().StringVarP(&rc.configPath, "config", "c", "", "path to the configuration file (default: rote.yaml)")
	root.Flags().StringVar(&rc.logFile, "log-file", "", "write structured operational logs to this file")
	root.Flags().BoolVar(&rc.generateExample, "generate-example", false, "print an example configuration file to stdout and exit")

	runCmd := &cobra.Command{
		Use:   "run [services...]",
		Short: "Run rote with a configuration file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return exitErr(rc.runMain(args))
		},
	}
	runCmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "path to the configuration file (default: rote.yaml)")
	runCmd.Flags().StringVar(&rc.logFile, "log-file", "", "write structured operational logs to this file")
	runCmd.Flags().BoolVar(&rc.generateExample, "generate-example", false, "print an example configuration file to stdout and exit")

	toolCmd := &cobra.Command{
		Use:   "tool",
		Short: "Run one of the built-in healthcheck probes",
	}
	toolCmd.PersistentFlags().BoolVar(&rc.toolWait, "wait", false, "retry until the probe succeeds instead of failing immediately")
	toolCmd.PersistentFlags().DurationVar(&rc.toolInterval, "interval", time.Second, "interval between retries when --wait is set")

	isPortOpenCmd := &cobra.Command{
		Use:   "is-port-open <port>",
		Short: "Check if a TCP port is open on localhost",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port number: %s", args[0])
			}
			return exitErr(rc.runProbe(func() error { return tools.IsPortOpen(port) }))
		},
	}

	httpGetCmd := &cobra.Command{
		Use:   "http-get <target>",
		Short: "GET a URL or local port; succeeds on any response status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			target := targetURL(args[0])
			return exitErr(rc.runProbe(func() error { return tools.HTTPGet(target) }))
		},
	}

	httpGetOkCmd := &cobra.Command{
		Use:   "http-get-ok <target>",
		Short: "GET a URL or local port; succeeds only on a 2xx response",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			target := targetURL(args[0])
			return exitErr(rc.runProbe(func() error { return tools.HTTPGetOk(target) }))
		},
	}

	toolCmd.AddCommand(isPortOpenCmd, httpGetCmd, httpGetOkCmd)
	root.AddCommand(runCmd, toolCmd)

	rc.cmd = root
	return rc
}

// exitCodeError carries a process exit code through cobra's error-returning
// RunE without printing anything extra: cobra only prints non-nil errors,
// and every failure path below has already written its own message.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return "" }

// exitErr converts an exit code into the sentinel error run() unwraps, or
// nil for a clean exit so cobra does not also print usage on success.
func exitErr(code int) error {
	if code == 0 {
		return nil
	}
	return exitCodeError{code: code}
}

func (rc *rootCmd) run() int {
	rc.cmd.SilenceUsage = true
	rc.cmd.SilenceErrors = true
	if err := rc.cmd.Execute(); err != nil {
		var ec exitCodeError
		if ok := asExitCodeError(err, &ec); ok {
			return ec.code
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func asExitCodeError(err error, target *exitCodeError) bool {
	ec, ok := err.(exitCodeError)
	if ok {
		*target = ec
	}
	return ok
}

// runMain parses the configuration, resolves which services to start, and
// drives the supervisor loop until it returns an exit code: services named
// on the command line, defaulting to the config's `default` task, exactly
// as rote.yaml's `default:` field is documented to behave.
func (rc *rootCmd) runMain(services []string) int {
	if rc.generateExample {
		fmt.Println(config.ExampleYAML)
		return 0
	}

	configPath := rc.configPath
	if configPath == "" {
		configPath = "rote.yaml"
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to read config file %q: %v\n", configPath, err)
		return 1
	}
	cfg, err := config.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	targets := services
	if len(targets) == 0 {
		if cfg.Default == "" {
			return 0
		}
		targets = []string{cfg.Default}
	}

	logger := rlog.New()
	if rc.logFile != "" {
		fileLogger, closeFn, err := rlog.NewFile(rc.logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to open log file %q: %v\n", rc.logFile, err)
			return 1
		}
		defer closeFn()
		logger = fileLogger
	}

	var adapter tui.Adapter
	if tui.IsTTY() {
		a, err := tui.NewANSIAdapter()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to initialize terminal: %v\n", err)
			return 1
		}
		adapter = a
	} else {
		adapter = tui.NewIncrementalAdapter()
	}
	defer adapter.Close()

	loop, err := supervisor.New(cfg, filepath.Dir(configPath), targets, adapter, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return loop.Run(ctx)
}

// runProbe runs probe once, retrying at rc.toolInterval until success if
// rc.toolWait is set, exactly matching `rote tool --wait`'s retry loop.
func (rc *rootCmd) runProbe(probe func() error) int {
	for {
		err := probe()
		if err == nil {
			return 0
		}
		if !rc.toolWait {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		time.Sleep(rc.toolInterval)
	}
}

// targetURL accepts either a bare port number or a full http(s) URL, as
// `rote tool http-get`/`http-get-ok` document.
func targetURL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return fmt.Sprintf("http://127.0.0.1:%s/", target)
}
