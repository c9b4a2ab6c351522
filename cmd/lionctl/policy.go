package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lion.run/lion/kernel"
	"lion.run/lion/policy"
)

func dispatchPolicy(_ context.Context, rt *kernel.Runtime, verb string, args []string) int {
	switch verb {
	case "add":
		return policyAdd(rt, args)
	case "list":
		return policyList(rt)
	case "remove":
		return policyRemove(rt, args)
	default:
		usage()
		return exitInvalidInput
	}
}

// ruleFile is the YAML-tagged CLI mirror of policy.Rule; constraints are
// not supported from the command line (an operator who needs
// AllowWithConstraints rules populates them programmatically).
type ruleFile struct {
	ID       string `yaml:"id"`
	Subject  string `yaml:"subject"`
	Object   string `yaml:"object"`
	Action   string `yaml:"action"`
	Effect   string `yaml:"effect"`
	Priority int    `yaml:"priority"`
	Source   string `yaml:"source"`
}

func policyAdd(rt *kernel.Runtime, args []string) int {
	fs := flag.NewFlagSet("policy add", flag.ContinueOnError)
	ruleArg := fs.String("rule", "", "path to a policy rule definition")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	if *ruleArg == "" {
		return fail("policy add: --rule is required")
	}
	raw, err := os.ReadFile(*ruleArg)
	if err != nil {
		return fail("policy add: %v", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return fail("policy add: parse: %v", err)
	}
	if rf.ID == "" || rf.Effect == "" {
		return fail("policy add: id and effect are required")
	}

	rt.AddPolicyRule(policy.Rule{
		ID:       rf.ID,
		Subject:  rf.Subject,
		Object:   rf.Object,
		Action:   rf.Action,
		Effect:   policy.Effect(rf.Effect),
		Priority: rf.Priority,
		Source:   rf.Source,
	})
	return exitOK
}

func policyList(rt *kernel.Runtime) int {
	for _, r := range rt.ListPolicyRules() {
		fmt.Printf("%s\t%s\t%s\t%s\t%s\tpriority=%d\tsource=%s\n",
			r.ID, r.Subject, r.Object, r.Action, r.Effect, r.Priority, r.Source)
	}
	return exitOK
}

func policyRemove(rt *kernel.Runtime, args []string) int {
	if len(args) < 1 {
		return fail("policy remove: rule id is required")
	}
	if cerr := rt.RemovePolicyRule(args[0]); cerr != nil {
		fmt.Fprintln(os.Stderr, "lionctl:", cerr)
		return exitNotFound
	}
	return exitOK
}
