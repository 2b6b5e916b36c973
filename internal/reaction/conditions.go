package reaction

import (
	"fmt"

	"github.com/roach88/kinetic/internal/model"
)

// Always holds unconditionally and contributes 1.
type Always struct{}

func (Always) Inputs(model.NodeID) []model.Dependency { return nil }

func (Always) Check(model.Environment, model.Node) (bool, float64, error) {
	return true, 1, nil
}

// AtLeast holds when the node carries at least Amount of Molecule.
// It contributes 1 when satisfied, 0 otherwise.
type AtLeast struct {
	Molecule model.Molecule
	Amount   float64
}

func (c AtLeast) Inputs(node model.NodeID) []model.Dependency {
	return []model.Dependency{model.Local(node, c.Molecule)}
}

func (c AtLeast) Check(_ model.Environment, node model.Node) (bool, float64, error) {
	if node.Concentration(c.Molecule) >= c.Amount {
		return true, 1, nil
	}
	return false, 0, nil
}

// MassAction holds when the node carries at least Order molecules and
// contributes the number of distinct Order-sized combinations:
// c(c-1)...(c-Order+1)/Order!.
type MassAction struct {
	Molecule model.Molecule
	Order    int
}

func (c MassAction) Inputs(node model.NodeID) []model.Dependency {
	return []model.Dependency{model.Local(node, c.Molecule)}
}

func (c MassAction) Check(_ model.Environment, node model.Node) (bool, float64, error) {
	order := max(c.Order, 1)
	n := node.Concentration(c.Molecule)
	if n < float64(order) {
		return false, 0, nil
	}
	p := 1.0
	for k := 0; k < order; k++ {
		p *= (n - float64(k)) / float64(k+1)
	}
	return true, p, nil
}

// TotalAtLeast holds when Molecule summed over every node reaches Amount.
type TotalAtLeast struct {
	Molecule model.Molecule
	Amount   float64
}

func (c TotalAtLeast) Inputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.Global(c.Molecule)}
}

func (c TotalAtLeast) Check(env model.Environment, _ model.Node) (bool, float64, error) {
	total := 0.0
	for _, n := range env.Nodes() {
		total += n.Concentration(c.Molecule)
	}
	if total >= c.Amount {
		return true, 1, nil
	}
	return false, 0, nil
}

// LayerAbove holds when the layer sampled at the node position exceeds
// Threshold.
type LayerAbove struct {
	Layer     model.Molecule
	Threshold float64
}

func (c LayerAbove) Inputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.LayerOf(c.Layer)}
}

func (c LayerAbove) Check(env model.Environment, node model.Node) (bool, float64, error) {
	l, ok := env.Layer(c.Layer)
	if !ok {
		return false, 0, fmt.Errorf("%w: %s", model.ErrLayerNotFound, c.Layer)
	}
	if l.Value(node.Position()) > c.Threshold {
		return true, 1, nil
	}
	return false, 0, nil
}
