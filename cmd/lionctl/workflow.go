package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lion.run/lion/ids"
	"lion.run/lion/kernel"
	"lion.run/lion/workflow"
)

func dispatchWorkflow(ctx context.Context, rt *kernel.Runtime, verb string, args []string) int {
	switch verb {
	case "register":
		return workflowRegister(rt, args)
	case "start":
		return workflowStart(ctx, rt, args)
	case "status":
		return workflowStatus(rt, args)
	case "abort":
		return workflowAbort(ctx, rt, args)
	default:
		usage()
		return exitInvalidInput
	}
}

// stepFile/definitionFile are the YAML-tagged CLI-facing mirrors of
// workflow.StepDef/Definition. The core's Definition type carries no YAML
// tags of its own (§6: "the core stays serialization-format-agnostic");
// lionctl owns the file format and translates it into the core's typed
// ids/structures.
type stepFile struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Action       string   `yaml:"action"`
	DependsOn    []string `yaml:"depends_on"`
	Compensation string   `yaml:"compensation"`
}

type definitionFile struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Steps []stepFile `yaml:"steps"`
}

func workflowRegister(rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("workflow register", flag.ContinueOnError)
	file := fs.String("file", "", "path to the workflow definition")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	if *file == "" {
		return fail("workflow register: --file is required")
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		return fail("workflow register: %v", err)
	}
	var df definitionFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return fail("workflow register: parse: %v", err)
	}

	def, err := toDefinition(df)
	if err != nil {
		return fail("workflow register: %v", err)
	}

	if cerr := rt.RegisterWorkflow(def); cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		if strings.Contains(cerr.Error(), "cycle") {
			return exitNotFound
		}
		return exitInvalidInput
	}
	fmt.Println(def.ID.String())
	return exitOK
}

func toDefinition(df definitionFile) (workflow.Definition, error) {
	workflowID, err := workflowIDOrNew(df.ID)
	if err != nil {
		return workflow.Definition{}, fmt.Errorf("invalid workflow id %q: %w", df.ID, err)
	}
	steps := make([]workflow.StepDef, 0, len(df.Steps))
	for _, sf := range df.Steps {
		stepID, err := stepIDOrNew(sf.ID)
		if err != nil {
			return workflow.Definition{}, fmt.Errorf("step %s: invalid id: %w", sf.ID, err)
		}
		var deps []ids.StepID
		for _, d := range sf.DependsOn {
			depID, err := ids.Parse(d)
			if err != nil {
				return workflow.Definition{}, fmt.Errorf("step %s: invalid depends_on %q: %w", sf.ID, d, err)
			}
			deps = append(deps, ids.StepID(depID))
		}
		steps = append(steps, workflow.StepDef{
			ID:           stepID,
			Name:         sf.Name,
			Action:       sf.Action,
			DependsOn:    deps,
			Compensation: sf.Compensation,
		})
	}
	return workflow.Definition{ID: workflowID, Name: df.Name, Steps: steps}, nil
}

func workflowIDOrNew(raw string) (ids.WorkflowID, error) {
	if raw == "" {
		return ids.NewWorkflowID(), nil
	}
	parsed, err := ids.Parse(raw)
	if err != nil {
		return ids.WorkflowID(ids.Nil), err
	}
	return ids.WorkflowID(parsed), nil
}

func stepIDOrNew(raw string) (ids.StepID, error) {
	if raw == "" {
		return ids.NewStepID(), nil
	}
	parsed, err := ids.Parse(raw)
	if err != nil {
		return ids.StepID(ids.Nil), err
	}
	return ids.StepID(parsed), nil
}

func workflowStart(ctx context.Context, rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("workflow start", flag.ContinueOnError)
	inputJSON := fs.String("input", "", "workflow input, as a JSON document")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fail("workflow start: workflow id is required")
	}
	id, err := ids.Parse(rest[0])
	if err != nil {
		return fail("workflow start: invalid workflow id: %v", err)
	}

	correlation := ids.NewCorrelationID()
	instanceID, cerr := rt.StartWorkflow(ctx, correlation, ids.WorkflowID(id), []byte(*inputJSON))
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitCodeFor(cerr)
	}
	fmt.Println(instanceID.String())
	return exitOK
}

func workflowStatus(rt *kernel.Runtime, args []string) int {
	if len(args) < 1 {
		return fail("workflow status: instance id is required")
	}
	id, err := ids.Parse(args[0])
	if err != nil {
		return fail("workflow status: invalid instance id: %v", err)
	}
	instance, cerr := rt.WorkflowStatus(ids.InstanceID(id))
	if cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitNotFound
	}
	printInstance(instance)
	return exitOK
}

func printInstance(instance workflow.Instance) {
	fmt.Printf("instance: %s\n", instance.ID)
	fmt.Printf("definition: %s\n", instance.DefinitionID)
	fmt.Printf("status: %s\n", instance.Status)
	if instance.Reason != "" {
		fmt.Printf("reason: %s\n", instance.Reason)
	}
	for stepID, rec := range instance.Steps {
		fmt.Printf("  step %s: %s (attempts=%d)\n", stepID, rec.Status, rec.Attempts)
	}
}

func workflowAbort(ctx context.Context, rt *kernel.Runtime, args []string) int {
	if len(args) < 1 {
		return fail("workflow abort: instance id is required")
	}
	id, err := ids.Parse(args[0])
	if err != nil {
		return fail("workflow abort: invalid instance id: %v", err)
	}
	if cerr := rt.AbortWorkflow(ctx, ids.InstanceID(id)); cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitNotFound
	}
	return exitOK
}
