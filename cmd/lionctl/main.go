// Command lionctl is the kernel's CLI surface (§6): plugin load/call/
// unload, workflow register/start/status/abort, policy add/list/remove,
// and system status/logs/shutdown, all driving one in-process
// kernel.Runtime.
//
// Subcommands dispatch the way the teacher's own CLI entry points do —
// stdlib flag.NewFlagSet per subcommand, no framework — since this is a
// thin driver over kernel.Runtime rather than a generated service.
package main

import (
	"context"
	"fmt"
	"os"

	"goa.design/clue/log"

	"lion.run/lion/config"
	"lion.run/lion/kernel"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		usage()
		return exitInvalidInput
	}

	cfg, err := config.Load(os.Getenv("LION_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "lionctl: load config:", err)
		return exitGeneric
	}

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if cfg.Telemetry.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}

	rt := kernel.New(kernel.Options{
		SchedulerPolicy: cfg.Scheduler.Policy,
		SchedulerLimits: cfg.Scheduler.ToLimits(),
	})

	resource, verb, rest := args[0], args[1], args[2:]
	switch resource {
	case "plugin":
		return dispatchPlugin(ctx, rt, verb, rest)
	case "agent":
		return dispatchAgent(ctx, rt, verb, rest)
	case "workflow":
		return dispatchWorkflow(ctx, rt, verb, rest)
	case "policy":
		return dispatchPolicy(ctx, rt, verb, rest)
	case "system":
		return dispatchSystem(ctx, rt, verb, rest)
	default:
		usage()
		return exitInvalidInput
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lionctl <resource> <verb> [flags]

  plugin load --path <manifest>
  plugin call --args <json> <plugin_id>
  plugin unload <plugin_id>
  agent call --prompt <text> <plugin_id>
  workflow register --file <def>
  workflow start [--input <json>] <workflow_id>
  workflow status <instance_id>
  workflow abort <instance_id>
  policy add --rule <def>
  policy list
  policy remove <id>
  system status
  system logs --level <lvl>
  system shutdown`)
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "lionctl: "+format+"\n", args...)
	return exitGeneric
}
