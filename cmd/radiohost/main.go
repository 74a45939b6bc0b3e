// Command radiohost is the launcher around the radio.System façade (spec
// §6 "Typical command-line driver"), dispatching one subcommand per
// invocation the way a long-lived supervisor process would issue them over
// the lifetime of one radio.
//
// Usage:
//
//	radiohost load <radio.xml>                 - parse, build and load a radio
//	radiohost start                             - start a loaded radio
//	radiohost stop                              - stop a running radio
//	radiohost unload                            - release a loaded radio
//	radiohost reconfigure <radio.xml>           - diff and apply a new description
//	radiohost set-repo <kind> <path[;path...]>  - set a plug-in search path
//	radiohost set-log-level <level>             - change the logging threshold
//	radiohost status                            - report the current state
//	radiohost serve-metrics <addr>              - serve Prometheus metrics and block
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/radioflow/runtime/pkg/config"
	"github.com/radioflow/runtime/radio"
	"github.com/radioflow/runtime/radio/metrics"

	"github.com/radioflow/runtime/internal/pluginhost"
)

// main runs one subcommand against a fresh System. Nothing is persisted
// between separate CLI invocations, so each invocation starts Unloaded;
// chaining commands works only within one process (through the
// radio.System API, as tests and scripts do).
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	sys := radio.New(pluginhost.NewRegistry())
	sys.Init()
	if err := metrics.RegisterSource(sys); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: metrics registration failed: %v\n", err)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var ok bool
	switch cmd {
	case "load":
		ok = cmdLoad(sys, args)
	case "start":
		ok = sys.Start()
	case "stop":
		ok = sys.Stop()
	case "unload":
		ok = sys.Unload()
	case "reconfigure":
		ok = cmdReconfigure(sys, args)
	case "set-repo":
		ok = cmdSetRepo(sys, args)
	case "set-log-level":
		ok = cmdSetLogLevel(sys, args)
	case "status":
		cmdStatus(sys)
		ok = true
	case "serve-metrics":
		ok = cmdServeMetrics(args)
	case "help", "-h", "--help":
		printUsage()
		ok = true
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`radiohost - reconfigurable radio runtime launcher

Usage:
  radiohost <command> [arguments]

Commands:
  load <radio.xml>                 Parse, build and load a radio
  start                            Start a loaded radio
  stop                             Stop a running radio
  unload                           Release a loaded radio
  reconfigure <radio.xml>          Diff and apply a new radio description
  set-repo <kind> <path[;path...]> Set a plug-in search path (stack|phy|sdf|controller)
  set-log-level <level>            Change the logging threshold (debug|info|warning|error|fatal)
  status                           Report the current façade state
  serve-metrics <addr>             Serve Prometheus metrics over HTTP and block

Examples:
  radiohost load ./radios/fm-receiver.xml
  radiohost start
  radiohost reconfigure ./radios/fm-receiver-v2.xml
  radiohost serve-metrics :9090`)
}

func cmdLoad(sys *radio.System, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: radiohost load <radio.xml>")
		return false
	}
	if !sys.LoadRadio(args[0]) {
		fmt.Fprintln(os.Stderr, "Error: load failed, see log output")
		return false
	}
	fmt.Println("loaded")
	return true
}

func cmdReconfigure(sys *radio.System, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: radiohost reconfigure <radio.xml>")
		return false
	}
	if !sys.Reconfigure(args[0]) {
		fmt.Fprintln(os.Stderr, "Error: reconfigure failed, see log output")
		return false
	}
	fmt.Println("reconfigured")
	return true
}

func cmdSetRepo(sys *radio.System, args []string) bool {
	fs := flag.NewFlagSet("set-repo", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return false
	}
	remaining := fs.Args()
	if len(remaining) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: radiohost set-repo <stack|phy|sdf|controller> <path[;path...]>")
		return false
	}

	kind, err := parseRepositoryKind(remaining[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	if !sys.SetRepository(kind, remaining[1]) {
		fmt.Fprintln(os.Stderr, "Error: set-repo failed, see log output")
		return false
	}
	fmt.Println("repository set")
	return true
}

func parseRepositoryKind(s string) (config.RepositoryKind, error) {
	switch s {
	case "stack":
		return config.RepositoryStack, nil
	case "phy":
		return config.RepositoryPhy, nil
	case "sdf":
		return config.RepositorySDF, nil
	case "controller":
		return config.RepositoryController, nil
	default:
		return "", fmt.Errorf("unknown repository kind %q", s)
	}
}

func cmdSetLogLevel(sys *radio.System, args []string) bool {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: radiohost set-log-level <level>")
		return false
	}
	sys.SetLogLevel(args[0])
	return true
}

func cmdStatus(sys *radio.System) {
	switch {
	case sys.IsRunning():
		fmt.Println("running")
	case sys.IsSuspended():
		fmt.Println("loaded")
	default:
		fmt.Println("unloaded")
	}
}

func cmdServeMetrics(args []string) bool {
	addr := ":9090"
	if len(args) > 0 {
		addr = args[0]
	}
	http.Handle("/metrics", metrics.Handler())
	fmt.Printf("serving metrics on %s/metrics\n", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	return true
}
