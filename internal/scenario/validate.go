package scenario

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/kinetic/internal/engine"
)

// ValidationError is one problem at a field path such as
// "nodes[0].reactions[1].time.rate".
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every problem found in a scenario.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

var reasons = map[string]bool{
	string(engine.ReasonRequested): true,
	string(engine.ReasonStepBound): true,
	string(engine.ReasonTimeBound): true,
	string(engine.ReasonExhausted): true,
	string(engine.ReasonError):     true,
	string(engine.ReasonCancelled): true,
}

// Validate checks a scenario and returns ValidationErrors listing every
// problem, or nil.
func Validate(sc *Scenario) error {
	v := &validator{}
	v.scenario(sc)
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

type validator struct {
	errs   ValidationErrors
	layers map[string]bool
}

func (v *validator) addf(path, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) scenario(sc *Scenario) {
	if sc.Name == "" {
		v.addf("name", "is required")
	}
	if sc.Terminate.Steps < 0 {
		v.addf("terminate.steps", "must be non-negative")
	}
	if sc.Terminate.Time < 0 {
		v.addf("terminate.time", "must be non-negative")
	}

	v.layers = make(map[string]bool, len(sc.Layers))
	for i, l := range sc.Layers {
		v.layer(fmt.Sprintf("layers[%d]", i), l)
	}

	if len(sc.Nodes) == 0 {
		v.addf("nodes", "at least one node group is required")
	}
	for i, n := range sc.Nodes {
		v.node(fmt.Sprintf("nodes[%d]", i), n)
	}

	if sc.Expect != nil {
		v.expect("expect", sc.Expect)
	}
	for i, a := range sc.Assertions {
		v.assertion(fmt.Sprintf("assertions[%d]", i), a)
	}
}

func (v *validator) layer(path string, l LayerSpec) {
	if l.Molecule == "" {
		v.addf(path+".molecule", "is required")
	} else if v.layers[l.Molecule] {
		v.addf(path+".molecule", "duplicate layer %q", l.Molecule)
	}
	v.layers[l.Molecule] = true

	switch {
	case l.Constant == nil && l.Noise == nil:
		v.addf(path, "one of constant or noise is required")
	case l.Constant != nil && l.Noise != nil:
		v.addf(path, "constant and noise are mutually exclusive")
	case l.Noise != nil:
		if l.Noise.Scale < 0 {
			v.addf(path+".noise.scale", "must be non-negative")
		}
		if l.Noise.Octaves < 0 {
			v.addf(path+".noise.octaves", "must be non-negative")
		}
	}
}

func (v *validator) node(path string, n NodeSpec) {
	if n.Count < 0 {
		v.addf(path+".count", "must be non-negative")
	}
	for _, m := range slices.Sorted(maps.Keys(n.Contents)) {
		c := n.Contents[m]
		if m == "" {
			v.addf(path+".contents", "molecule name is required")
		}
		if c < 0 {
			v.addf(fmt.Sprintf("%s.contents.%s", path, m), "must be non-negative")
		}
	}

	ids := make(map[string]bool, len(n.Reactions))
	for i, r := range n.Reactions {
		rp := fmt.Sprintf("%s.reactions[%d]", path, i)
		if r.ID == "" {
			v.addf(rp+".id", "is required")
		} else if ids[r.ID] {
			v.addf(rp+".id", "duplicate reaction %q", r.ID)
		}
		ids[r.ID] = true
	}
	for i, r := range n.Reactions {
		rp := fmt.Sprintf("%s.reactions[%d]", path, i)

		v.time(rp+".time", r.Time)
		for j, c := range r.Conditions {
			v.condition(fmt.Sprintf("%s.conditions[%d]", rp, j), c)
		}
		for j, a := range r.Actions {
			v.action(fmt.Sprintf("%s.actions[%d]", rp, j), a, ids)
		}
	}
}

func (v *validator) time(path string, t TimeSpec) {
	switch t.Type {
	case TimeExponential:
		if t.Rate <= 0 {
			v.addf(path+".rate", "must be positive")
		}
	case TimeDirac:
		if t.Interval <= 0 {
			v.addf(path+".interval", "must be positive")
		}
		if t.Start != nil && *t.Start < 0 {
			v.addf(path+".start", "must be non-negative")
		}
	case TimeTrigger:
		if t.At < 0 {
			v.addf(path+".at", "must be non-negative")
		}
	case "":
		v.addf(path+".type", "is required")
	default:
		v.addf(path+".type", "unknown time distribution %q", t.Type)
	}
}

func (v *validator) condition(path string, c ConditionSpec) {
	switch c.Type {
	case CondAlways:
	case CondAtLeast, CondTotalAtLeast:
		v.molecule(path, c.Molecule)
		if c.Amount < 0 {
			v.addf(path+".amount", "must be non-negative")
		}
	case CondMassAction:
		v.molecule(path, c.Molecule)
		if c.Order < 0 {
			v.addf(path+".order", "must be non-negative")
		}
	case CondLayerAbove:
		if c.Layer == "" {
			v.addf(path+".layer", "is required")
		} else if !v.layers[c.Layer] {
			v.addf(path+".layer", "undeclared layer %q", c.Layer)
		}
	case "":
		v.addf(path+".type", "is required")
	default:
		v.addf(path+".type", "unknown condition %q", c.Type)
	}
}

// action validates a against the reaction ids of its node group.
func (v *validator) action(path string, a ActionSpec, ids map[string]bool) {
	switch a.Type {
	case ActChange, ActChangeGlobal:
		v.molecule(path, a.Molecule)
	case ActSet:
		v.molecule(path, a.Molecule)
		if a.Value < 0 {
			v.addf(path+".value", "must be non-negative")
		}
	case ActRemoveNode, ActSpawn:
	case ActRetarget:
		switch {
		case a.Reaction == "":
			v.addf(path+".reaction", "is required")
		case !ids[a.Reaction]:
			v.addf(path+".reaction", "unknown reaction %q", a.Reaction)
		}
		for j, c := range a.Conditions {
			v.condition(fmt.Sprintf("%s.conditions[%d]", path, j), c)
		}
	case "":
		v.addf(path+".type", "is required")
	default:
		v.addf(path+".type", "unknown action %q", a.Type)
	}
}

func (v *validator) molecule(path, m string) {
	if m == "" {
		v.addf(path+".molecule", "is required")
	}
}

func (v *validator) expect(path string, e *Expect) {
	if e.State != "" {
		if _, ok := engine.ParseState(e.State); !ok {
			v.addf(path+".state", "unknown state %q", e.State)
		}
	}
	if e.Reason != "" && !reasons[e.Reason] {
		v.addf(path+".reason", "unknown reason %q", e.Reason)
	}
	if e.Steps != nil && *e.Steps < 0 {
		v.addf(path+".steps", "must be non-negative")
	}
	if e.Nodes != nil && *e.Nodes < 0 {
		v.addf(path+".nodes", "must be non-negative")
	}
}

// assertion validates a single assertion based on its type.
func (v *validator) assertion(path string, a Assertion) {
	switch a.Type {
	case AssertTraceContains:
		if a.Reaction == "" {
			v.addf(path+".reaction", "is required for trace_contains")
		}
		if a.Node < 0 {
			v.addf(path+".node", "must be non-negative")
		}
	case AssertTraceOrder:
		if len(a.Reactions) == 0 {
			v.addf(path+".reactions", "is required for trace_order")
		}
	case AssertTraceCount:
		if a.Reaction == "" {
			v.addf(path+".reaction", "is required for trace_count")
		}
		if a.Count < 0 {
			v.addf(path+".count", "must be non-negative for trace_count")
		}
	case AssertFinalState:
		if a.Node <= 0 {
			v.addf(path+".node", "is required for final_state")
		}
		v.molecule(path, a.Molecule)
	case "":
		v.addf(path+".type", "is required")
	default:
		v.addf(path+".type", "unknown assertion type %q", a.Type)
	}
}
