package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"lion.run/lion/capability"
	"lion.run/lion/ids"
	"lion.run/lion/policy"
)

func fileReq(action, path string) policy.Request {
	return policy.Request{
		Subject: "plugin.worker",
		Object:  "file:" + path,
		Action:  action,
		Access:  capability.FileAccess{Path: path, Rights: capability.RightRead},
	}
}

func TestEvaluateDefaultDenyWhenNoRuleMatches(t *testing.T) {
	t.Parallel()
	e := policy.NewEngine(nil)
	d := e.Evaluate(context.Background(), fileReq("read", "/data/a"), ids.CorrelationID(ids.Nil))
	require.Equal(t, policy.EffectDeny, d.Effect)
}

func TestDenyOverridesWinsOverAllow(t *testing.T) {
	t.Parallel()
	e := policy.NewEngine([]policy.Rule{
		{ID: "allow-all", Subject: "*", Object: "*", Action: "*", Effect: policy.EffectAllow, Priority: 0},
		{ID: "deny-etc", Subject: "*", Object: "file:/etc/*", Action: "*", Effect: policy.EffectDeny, Priority: 10},
	}, policy.WithStrategy(policy.DenyOverrides))

	d := e.Evaluate(context.Background(), fileReq("read", "/etc/passwd"), ids.CorrelationID{})
	require.Equal(t, policy.EffectDeny, d.Effect)

	d2 := e.Evaluate(context.Background(), fileReq("read", "/data/a"), ids.CorrelationID{})
	require.Equal(t, policy.EffectAllow, d2.Effect)
}

func TestAllowWithConstraintsMergesIntersection(t *testing.T) {
	t.Parallel()
	e := policy.NewEngine([]policy.Rule{
		{
			ID: "ro-a", Subject: "*", Object: "file:/data/*", Action: "*",
			Effect:      policy.EffectAllowWithConstraints,
			Constraints: capability.File{Paths: []string{"/data/a", "/data/b"}, Rights: capability.RightRead | capability.RightWrite},
		},
		{
			ID: "ro-b", Subject: "*", Object: "file:/data/*", Action: "*",
			Effect:      policy.EffectAllowWithConstraints,
			Constraints: capability.File{Paths: []string{"/data/a"}, Rights: capability.RightRead},
		},
	})

	d := e.Evaluate(context.Background(), fileReq("write", "/data/a"), ids.CorrelationID{})
	require.Equal(t, policy.EffectAllowWithConstraints, d.Effect)
	fc := d.Constraints.(capability.File)
	require.Equal(t, []string{"/data/a"}, fc.Paths)
	require.Equal(t, capability.RightRead, fc.Rights)
}

func TestFirstMatchStrategyPicksHighestPriority(t *testing.T) {
	t.Parallel()
	e := policy.NewEngine([]policy.Rule{
		{ID: "low", Subject: "*", Object: "*", Action: "*", Effect: policy.EffectDeny, Priority: 1},
		{ID: "high", Subject: "*", Object: "*", Action: "*", Effect: policy.EffectAllow, Priority: 100},
	}, policy.WithStrategy(policy.FirstMatch))

	d := e.Evaluate(context.Background(), fileReq("read", "/data/a"), ids.CorrelationID{})
	require.Equal(t, policy.EffectAllow, d.Effect)
}

func TestAuditRecordsDenyAndConstrainedNotPlainAllow(t *testing.T) {
	t.Parallel()
	var events []policy.AuditEvent
	sink := policy.AuditFunc(func(e policy.AuditEvent) { events = append(events, e) })

	e := policy.NewEngine([]policy.Rule{
		{ID: "allow-all", Subject: "*", Object: "*", Action: "*", Effect: policy.EffectAllow},
	}, policy.WithAudit(sink, false))

	e.Evaluate(context.Background(), fileReq("read", "/data/a"), ids.CorrelationID{})
	require.Empty(t, events, "plain Allow must not be audited by default")

	e.AddRule(policy.Rule{ID: "deny-etc", Subject: "*", Object: "file:/etc/*", Action: "*", Effect: policy.EffectDeny, Priority: 10})
	e.Evaluate(context.Background(), fileReq("read", "/etc/passwd"), ids.CorrelationID{})
	require.Len(t, events, 1)
	require.Equal(t, policy.EffectDeny, events[0].Decision.Effect)
}
