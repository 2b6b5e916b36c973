// Package scenario loads simulation scenarios from YAML or CUE files and
// builds environments from them.
//
// A scenario declares layers, node groups with their initial contents and
// reactions, termination bounds, and optional expectations about the
// outcome. Both file formats decode into the same Scenario struct; YAML uses
// the yaml tags, CUE the json tags.
//
// Example (YAML):
//
//	name: decay
//	seed: 42
//	terminate: {steps: 100}
//	nodes:
//	  - contents: {A: 50}
//	    reactions:
//	      - id: decay
//	        time: {type: exponential, rate: 0.5}
//	        conditions: [{type: mass_action, molecule: A}]
//	        actions: [{type: change, molecule: A, delta: -1}]
//	expect: {state: terminated, reason: step-bound, steps: 50}
package scenario

// Time distribution types.
const (
	TimeExponential = "exponential"
	TimeDirac       = "dirac"
	TimeTrigger     = "trigger"
)

// Condition types.
const (
	CondAlways       = "always"
	CondAtLeast      = "at_least"
	CondMassAction   = "mass_action"
	CondTotalAtLeast = "total_at_least"
	CondLayerAbove   = "layer_above"
)

// Action types.
const (
	ActChange       = "change"
	ActSet          = "set"
	ActChangeGlobal = "change_global"
	ActRemoveNode   = "remove_node"
	ActSpawn        = "spawn"
	ActRetarget     = "retarget"
)

// Scenario is a complete simulation setup.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario models.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Seed seeds every random source of the run.
	Seed int64 `yaml:"seed" json:"seed"`

	Terminate Terminate   `yaml:"terminate,omitempty" json:"terminate,omitempty"`
	Layers    []LayerSpec `yaml:"layers,omitempty" json:"layers,omitempty"`
	Nodes     []NodeSpec  `yaml:"nodes" json:"nodes"`

	// Expect is checked by the harness. Nil means no expectations.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Assertions validate the trace and the final environment.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Terminate holds the run bounds. Zero means unbounded.
type Terminate struct {
	Steps int64   `yaml:"steps,omitempty" json:"steps,omitempty"`
	Time  float64 `yaml:"time,omitempty" json:"time,omitempty"`
}

// LayerSpec declares a layer for one molecule. Exactly one of Constant and
// Noise must be set.
type LayerSpec struct {
	Molecule string     `yaml:"molecule" json:"molecule"`
	Constant *float64   `yaml:"constant,omitempty" json:"constant,omitempty"`
	Noise    *NoiseSpec `yaml:"noise,omitempty" json:"noise,omitempty"`
}

// NoiseSpec parameterizes an OpenSimplex noise layer. A zero Seed uses the
// scenario seed.
type NoiseSpec struct {
	Seed      int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	Scale     float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty" json:"amplitude,omitempty"`
	Offset    float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Octaves   int     `yaml:"octaves,omitempty" json:"octaves,omitempty"`
}

// NodeSpec declares Count identical nodes. Node i is placed at
// Position + i*Spacing along the x axis.
type NodeSpec struct {
	// Count defaults to 1.
	Count     int                `yaml:"count,omitempty" json:"count,omitempty"`
	Position  Point              `yaml:"position,omitempty" json:"position,omitempty"`
	Spacing   float64            `yaml:"spacing,omitempty" json:"spacing,omitempty"`
	Contents  map[string]float64 `yaml:"contents,omitempty" json:"contents,omitempty"`
	Reactions []ReactionSpec     `yaml:"reactions,omitempty" json:"reactions,omitempty"`
}

// Point is a position in scenario files.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// ReactionSpec declares one reaction of a node.
type ReactionSpec struct {
	ID         string          `yaml:"id" json:"id"`
	Time       TimeSpec        `yaml:"time" json:"time"`
	Conditions []ConditionSpec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Actions    []ActionSpec    `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// TimeSpec selects a time distribution.
//   - exponential: Rate
//   - dirac: Start (default: one Interval), Interval
//   - trigger: At
type TimeSpec struct {
	Type     string   `yaml:"type" json:"type"`
	Rate     float64  `yaml:"rate,omitempty" json:"rate,omitempty"`
	Start    *float64 `yaml:"start,omitempty" json:"start,omitempty"`
	Interval float64  `yaml:"interval,omitempty" json:"interval,omitempty"`
	At       float64  `yaml:"at,omitempty" json:"at,omitempty"`
}

// ConditionSpec declares a condition. Fields used depend on Type.
type ConditionSpec struct {
	Type      string  `yaml:"type" json:"type"`
	Molecule  string  `yaml:"molecule,omitempty" json:"molecule,omitempty"`
	Amount    float64 `yaml:"amount,omitempty" json:"amount,omitempty"`
	Order     int     `yaml:"order,omitempty" json:"order,omitempty"`
	Layer     string  `yaml:"layer,omitempty" json:"layer,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// ActionSpec declares an action. Fields used depend on Type.
type ActionSpec struct {
	Type     string  `yaml:"type" json:"type"`
	Molecule string  `yaml:"molecule,omitempty" json:"molecule,omitempty"`
	Delta    float64 `yaml:"delta,omitempty" json:"delta,omitempty"`
	Value    float64 `yaml:"value,omitempty" json:"value,omitempty"`
	// Offset positions a spawned node relative to its parent.
	Offset Point `yaml:"offset,omitempty" json:"offset,omitempty"`
	// Reaction and Conditions retarget another reaction of the same node.
	Reaction   string          `yaml:"reaction,omitempty" json:"reaction,omitempty"`
	Conditions []ConditionSpec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Expect lists the outcome a run must have. Unset fields are not checked.
type Expect struct {
	State  string   `yaml:"state,omitempty" json:"state,omitempty"`
	Reason string   `yaml:"reason,omitempty" json:"reason,omitempty"`
	Steps  *int64   `yaml:"steps,omitempty" json:"steps,omitempty"`
	Final  *float64 `yaml:"final,omitempty" json:"final,omitempty"`
	Nodes  *int     `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Digest string   `yaml:"digest,omitempty" json:"digest,omitempty"`
}

// Assertion validates the trace or the final environment.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Reaction fired at least once (on Node, if set)
	// - "trace_order": the first firings of Reactions appear in order
	// - "trace_count": Reaction fired exactly Count times
	// - "final_state": Molecule on Node equals Value at the end of the run
	Type string `yaml:"type" json:"type"`

	Reaction  string   `yaml:"reaction,omitempty" json:"reaction,omitempty"`
	Reactions []string `yaml:"reactions,omitempty" json:"reactions,omitempty"`
	Count     int      `yaml:"count,omitempty" json:"count,omitempty"`

	// Node is a node ID. Zero matches any node in trace_contains.
	Node     int64   `yaml:"node,omitempty" json:"node,omitempty"`
	Molecule string  `yaml:"molecule,omitempty" json:"molecule,omitempty"`
	Value    float64 `yaml:"value,omitempty" json:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

func (n NodeSpec) count() int {
	if n.Count == 0 {
		return 1
	}
	return n.Count
}
