package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lion.run/lion/errkind"
	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/kernel"
)

func dispatchPlugin(ctx context.Context, rt *kernel.Runtime, verb string, args []string) int {
	switch verb {
	case "load":
		return pluginLoad(ctx, rt, args)
	case "call":
		return pluginCall(ctx, rt, args)
	case "unload":
		return pluginUnload(ctx, rt, args)
	default:
		usage()
		return exitInvalidInput
	}
}

func pluginLoad(ctx context.Context, rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("plugin load", flag.ContinueOnError)
	path := fs.String("path", "", "path to the plugin manifest")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	if *path == "" {
		return fail("plugin load: --path is required")
	}
	manifestRaw, err := os.ReadFile(*path)
	if err != nil {
		return fail("plugin load: %v", err)
	}

	correlation := ids.NewCorrelationID()
	// The CLI never supplies a handler of its own; nil tells LoadPlugin to
	// resolve one from the manifest's entry_point instead.
	pluginID, cerr := rt.LoadPlugin(ctx, correlation, manifestRaw, nil)
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		// A rejected manifest (KindInput) exits 2, not the table's 4.
		if cerr.Kind == errkind.KindInput {
			return exitNotFound
		}
		return exitCodeFor(cerr)
	}
	fmt.Println(pluginID.String())
	return exitOK
}

func pluginCall(ctx context.Context, rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("plugin call", flag.ContinueOnError)
	argsJSON := fs.String("args", "", "call arguments, as a JSON document")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fail("plugin call: plugin id is required")
	}
	id, err := ids.Parse(rest[0])
	if err != nil {
		return fail("plugin call: invalid plugin id: %v", err)
	}

	correlation := ids.NewCorrelationID()
	result, cerr := rt.CallPlugin(ctx, correlation, ids.PluginID(id), []byte(*argsJSON), executor.ResourceLimits{})
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitCodeFor(cerr)
	}
	fmt.Println(string(result))
	return exitOK
}

func pluginUnload(ctx context.Context, rt *kernel.Runtime, args []string) int {
	if len(args) < 1 {
		return fail("plugin unload: plugin id is required")
	}
	id, err := ids.Parse(args[0])
	if err != nil {
		return fail("plugin unload: invalid plugin id: %v", err)
	}
	correlation := ids.NewCorrelationID()
	if cerr := rt.UnloadPlugin(ctx, correlation, ids.PluginID(id)); cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		// An unknown plugin id (KindInput) exits 2.
		if cerr.Kind == errkind.KindInput {
			return exitNotFound
		}
		return exitCodeFor(cerr)
	}
	return exitOK
}
