package policy

import (
	"context"

	"lion.run/lion/capability"
	"lion.run/lion/errkind"
	"lion.run/lion/ids"
)

// CombinedGate implements §4.4's "combined gate": an access is permitted iff
// the capability gate allows it AND the policy engine's decision is not
// Deny. Policy constraints further narrow what the caller may actually do;
// callers should use the returned capability.Capability — not the original
// request — when performing the access.
type CombinedGate struct {
	Capabilities *capability.Gate
	Policies     *Engine
}

// NewCombinedGate constructs a CombinedGate from its two constituent gates.
func NewCombinedGate(capGate *capability.Gate, policyEngine *Engine) *CombinedGate {
	return &CombinedGate{Capabilities: capGate, Policies: policyEngine}
}

// Check performs the full §4.3+§4.4 gating sequence for one access attempt
// by plugin: capability coverage first (I2: "reaches an isolation executor
// only if the capability gate and policy engine both permit it"), then
// policy evaluation. constraints is nil when policy grants unconstrained
// Allow; when non-nil it narrows the permitted action (e.g. read-only even
// if the held capability allows write) and callers MUST honor it.
func (g *CombinedGate) Check(ctx context.Context, plugin ids.PluginID, req Request, correlation ids.CorrelationID) (constraints capability.Capability, cerr *errkind.Error) {
	ok, err := g.Capabilities.Check(ctx, plugin, req.Access)
	if !ok {
		if err == nil {
			err = errkind.New(errkind.KindCapabilityDenied, "capability denied for "+string(req.Access.Kind()))
		}
		return nil, err
	}

	decision := g.Policies.Evaluate(ctx, req, correlation)
	switch decision.Effect {
	case EffectDeny:
		return nil, errkind.New(errkind.KindPolicyDenied, decision.Reason).WithCorrelation(correlation)
	case EffectAllowWithConstraints:
		return decision.Constraints, nil
	default:
		return nil, nil
	}
}
