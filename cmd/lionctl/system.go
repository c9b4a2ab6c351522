package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lion.run/lion/kernel"
)

func dispatchSystem(ctx context.Context, rt *kernel.Runtime, verb string, args []string) int {
	switch verb {
	case "status":
		return systemStatus(ctx, rt)
	case "logs":
		return systemLogs(args)
	case "shutdown":
		return systemShutdown()
	default:
		usage()
		return exitInvalidInput
	}
}

func systemStatus(ctx context.Context, rt *kernel.Runtime) int {
	status, err := rt.Status(ctx)
	if err != nil {
		return fail("system status: %v", err)
	}
	fmt.Printf("loaded plugins: %d\n", status.LoadedCount)
	fmt.Printf("event log total: %d\n", status.LogStats.TotalEvents)
	for typ, count := range status.LogStats.CountsByType {
		fmt.Printf("  %s: %d\n", typ, count)
	}
	return exitOK
}

// systemLogs prints nothing beyond accepting --level, since this process is
// one-shot: there is no long-lived log buffer to page through outside of
// whatever the process's own stderr stream already carried this run.
// Production deployments tail lionctl's structured stderr stream directly
// (the teacher's own clue/log output, §6 observability outputs) rather
// than querying the kernel for historical log lines.
func systemLogs(args []string) int {
	fs := flag.NewFlagSet("system logs", flag.ContinueOnError)
	fs.String("level", "info", "minimum log level to display")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	fmt.Fprintln(os.Stderr, "lionctl: this process does not retain historical logs; tail its structured stderr stream instead")
	return exitOK
}

// systemShutdown is a no-op for the in-process CLI driver: each lionctl
// invocation owns its own short-lived Runtime, so there is no long-running
// daemon process to signal. A daemon deployment of the kernel (outside this
// CLI) would handle SIGTERM directly.
func systemShutdown() int {
	fmt.Println("lionctl: no long-lived runtime to shut down in this invocation")
	return exitOK
}
