// Command aptctl inspects APT motion and piezo controllers and their
// trace captures.
//
// Usage:
//
//	aptctl <command> [flags]
//
// Commands:
//
//	list      List USB serial ports, marking APT controllers
//	info      Show controller identity and channels
//	identify  Flash the front panel LED of a channel
//	view      Print a trace capture in human-readable form
//	stats     Summarize a trace capture
//	monitor   Poll a controller and serve Prometheus metrics
//
// Examples:
//
//	# Show the only attached controller, capturing its frames
//	aptctl info -trace session.cbor
//
//	# Pick a controller by serial number from a config file
//	aptctl info -config aptctl.yaml -serial 71000042
//
//	# Show only frames sent to the controller
//	aptctl view -direction out session.cbor
package main

import (
	"flag"
	"fmt"
	"os"
)

const usage = `aptctl - APT controller tool

Usage:
  aptctl <command> [flags]

Commands:
  list      List USB serial ports, marking APT controllers
  info      Show controller identity and channels
  identify  Flash the front panel LED of a channel
  view      Print a trace capture in human-readable form
  stats     Summarize a trace capture
  monitor   Poll a controller and serve Prometheus metrics

Use "aptctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "list":
		err = runList(args)
	case "info":
		err = runInfo(args)
	case "identify":
		err = runIdentify(args)
	case "view":
		err = runView(args)
	case "stats":
		err = runStats(args)
	case "monitor":
		err = runMonitor(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name, synopsis, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "aptctl %s - %s\n\nUsage:\n  aptctl %s [flags] %s\n\nFlags:\n", name, synopsis, name, args)
		fs.PrintDefaults()
	}

	return fs
}
