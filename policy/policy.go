// Package policy implements the Policy Engine (C4): rule-based allow/deny/
// constrain decisions layered on top of capability checks, independent of
// capability grants so that policy can change without re-provisioning
// capabilities.
//
// Rule matching and precedence follow the security policy pattern used
// elsewhere in the retrieved sandbox design (glob subject/object/action
// patterns, highest-priority match wins within one source), generalized to
// support the three-way Allow/Deny/AllowWithConstraints outcome and
// multi-source aggregation spec.md requires.
package policy

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"lion.run/lion/capability"
	"lion.run/lion/ids"
)

type (
	// Effect is a rule's outcome when matched.
	Effect string

	// Strategy picks how rules from different sources are combined when more
	// than one matches the same request.
	Strategy string
)

const (
	EffectAllow                Effect = "allow"
	EffectDeny                 Effect = "deny"
	EffectAllowWithConstraints Effect = "allow_with_constraints"
)

const (
	// DenyOverrides is the default: any matching Deny wins outright.
	DenyOverrides Strategy = "deny_overrides"
	// AllowOverrides lets any matching Allow win over Deny.
	AllowOverrides Strategy = "allow_overrides"
	// FirstMatch takes the highest-priority matching rule and stops.
	FirstMatch Strategy = "first_match"
)

// Rule is one PolicyRule: glob patterns over subject/object/action, an
// effect, and a priority used to break ties within FirstMatch (constraint
// merging follows rule order, not priority). Source identifies which policy layer contributed the
// rule (system, user, plugin-declared) for audit purposes.
type Rule struct {
	ID          string
	Subject     string
	Object      string
	Action      string
	Effect      Effect
	Constraints capability.Capability // only meaningful when Effect == EffectAllowWithConstraints
	Priority    int
	Source      string
}

func (r Rule) matches(req Request) bool {
	return matchGlob(r.Subject, req.Subject) &&
		matchGlob(r.Object, req.Object) &&
		matchGlob(r.Action, req.Action)
}

func matchGlob(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if ok, err := path.Match(pattern, value); err == nil && ok {
		return true
	}
	return strings.HasSuffix(pattern, "*") && strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
}

// Request is what a caller asks the Policy Engine to evaluate. Subject is
// typically a plugin or agent id string, Object the resource being accessed,
// Action the verb (read/write/connect/invoke/...).
type Request struct {
	Subject string
	Object  string
	Action  string
	Access  capability.AccessRequest
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Effect      Effect
	Reason      string
	Constraints capability.Capability
	Matched     []Rule
}

func (d Decision) Denied() bool { return d.Effect == EffectDeny }

// AuditEvent records one policy decision for the audit trail (§4.4: mandatory
// for Deny and AllowWithConstraints, configurable for Allow).
type AuditEvent struct {
	Request     Request
	Matched     []Rule
	Decision    Decision
	Timestamp   time.Time
	Correlation ids.CorrelationID
}

// AuditSink receives every policy decision the Engine is configured to
// report.
type AuditSink interface {
	Audit(AuditEvent)
}

// AuditFunc adapts a plain function to AuditSink.
type AuditFunc func(AuditEvent)

func (f AuditFunc) Audit(e AuditEvent) { f(e) }

// Engine is the Policy Engine (C4).
type Engine struct {
	mu         []Rule
	strategy   Strategy
	audit      AuditSink
	auditAllow bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithStrategy sets the aggregation strategy (default DenyOverrides).
func WithStrategy(s Strategy) Option { return func(e *Engine) { e.strategy = s } }

// WithAudit registers a sink that receives every decision. auditAllow
// additionally reports plain Allow decisions, which are otherwise unaudited
// by default per §4.4.
func WithAudit(sink AuditSink, auditAllow bool) Option {
	return func(e *Engine) { e.audit = sink; e.auditAllow = auditAllow }
}

// NewEngine constructs an Engine with the given rule set.
func NewEngine(rules []Rule, opts ...Option) *Engine {
	e := &Engine{mu: append([]Rule(nil), rules...), strategy: DenyOverrides}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule appends a rule to the engine's rule set.
func (e *Engine) AddRule(r Rule) { e.mu = append(e.mu, r) }

// ListRules returns a snapshot of every rule currently loaded, in insertion
// order.
func (e *Engine) ListRules() []Rule {
	out := make([]Rule, len(e.mu))
	copy(out, e.mu)
	return out
}

// RemoveRule deletes the rule with the given ID. It reports whether a rule
// was found and removed.
func (e *Engine) RemoveRule(id string) bool {
	for i, r := range e.mu {
		if r.ID == id {
			e.mu = append(e.mu[:i], e.mu[i+1:]...)
			return true
		}
	}
	return false
}

// Evaluate implements §4.4's algorithm: collect every rule matching req,
// then resolve precedence according to the configured Strategy. With no
// matching rule the default is Deny.
func (e *Engine) Evaluate(ctx context.Context, req Request, correlation ids.CorrelationID) Decision {
	var matched []Rule
	for _, r := range e.mu {
		if r.matches(req) {
			matched = append(matched, r)
		}
	}

	decision := e.resolve(matched)
	if e.audit != nil && (decision.Effect != EffectAllow || e.auditAllow) {
		e.audit.Audit(AuditEvent{
			Request:     req,
			Matched:     matched,
			Decision:    decision,
			Timestamp:   time.Now(),
			Correlation: correlation,
		})
	}
	return decision
}

func (e *Engine) resolve(matched []Rule) Decision {
	if len(matched) == 0 {
		return Decision{Effect: EffectDeny, Reason: "no matching policy rule"}
	}

	switch e.strategy {
	case FirstMatch:
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })
		top := matched[0]
		return Decision{Effect: top.Effect, Reason: "first match: " + top.ID, Constraints: top.Constraints, Matched: matched}

	case AllowOverrides:
		if allow, ok := firstOfEffect(matched, EffectAllow); ok {
			return Decision{Effect: EffectAllow, Reason: "allow overrides: " + allow.ID, Matched: matched}
		}
		if constrained := filterEffect(matched, EffectAllowWithConstraints); len(constrained) > 0 {
			return Decision{Effect: EffectAllowWithConstraints, Reason: "constrained match", Constraints: mergeConstraints(constrained), Matched: matched}
		}
		return Decision{Effect: EffectDeny, Reason: "deny: no allow present", Matched: matched}

	default: // DenyOverrides
		if deny, ok := firstOfEffect(matched, EffectDeny); ok {
			return Decision{Effect: EffectDeny, Reason: "deny overrides: " + deny.ID, Matched: matched}
		}
		if constrained := filterEffect(matched, EffectAllowWithConstraints); len(constrained) > 0 {
			return Decision{Effect: EffectAllowWithConstraints, Reason: "constrained match", Constraints: mergeConstraints(constrained), Matched: matched}
		}
		if _, ok := firstOfEffect(matched, EffectAllow); ok {
			return Decision{Effect: EffectAllow, Reason: "allow match", Matched: matched}
		}
		return Decision{Effect: EffectDeny, Reason: "default deny", Matched: matched}
	}
}

func firstOfEffect(rules []Rule, eff Effect) (Rule, bool) {
	for _, r := range rules {
		if r.Effect == eff {
			return r, true
		}
	}
	return Rule{}, false
}

func filterEffect(rules []Rule, eff Effect) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Effect == eff {
			out = append(out, r)
		}
	}
	return out
}

// mergeConstraints intersects every AllowWithConstraints rule's Constraints
// via Meet, producing the narrowest combined grant (§4.4: "merge all
// constraints (intersection)"). Rules whose constraints don't meet (distinct
// kinds) are skipped — an operator error caught by rule validation, not a
// runtime panic.
func mergeConstraints(rules []Rule) capability.Capability {
	var merged capability.Capability
	for _, r := range rules {
		if r.Constraints == nil {
			continue
		}
		if merged == nil {
			merged = r.Constraints
			continue
		}
		if next, ok := merged.Meet(r.Constraints); ok {
			merged = next
		}
	}
	return merged
}
