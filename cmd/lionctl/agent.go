package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/kernel"
)

func dispatchAgent(ctx context.Context, rt *kernel.Runtime, verb string, args []string) int {
	switch verb {
	case "call":
		return agentCall(ctx, rt, args)
	default:
		usage()
		return exitInvalidInput
	}
}

// agentCall dispatches a loaded plugin through kernel.Runtime.CallAgent
// rather than CallPlugin, so the invocation is observable via the Agent
// lifecycle (AgentSpawned/AgentPartialOutput/AgentCompleted/AgentError)
// instead of the Plugin one.
func agentCall(ctx context.Context, rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("agent call", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "prompt text")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fail("agent call: plugin id is required")
	}
	id, err := ids.Parse(rest[0])
	if err != nil {
		return fail("agent call: invalid plugin id: %v", err)
	}

	correlation := ids.NewCorrelationID()
	result, cerr := rt.CallAgent(ctx, correlation, ids.PluginID(id), []byte(*prompt), executor.ResourceLimits{})
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitCodeFor(cerr)
	}
	fmt.Println(string(result))
	return exitOK
}
