package pipeline

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
	"github.com/matzehuels/patrolgraph/pkg/visibility"
)

// WeightEnv is the environment a weight expression sees for one vertex.
//
//	Visible * 0.1 + (Degree > 2 ? 2 : 1)
type WeightEnv struct {
	Visible  int // tiles visible from the vertex
	X        int
	Y        int
	Degree   int
	Vertices int // vertices in the graph
}

// WeightProgram is a compiled vertex weight expression.
type WeightProgram struct {
	src     string
	program *vm.Program
}

// CompileWeight compiles a weight expression. The expression must evaluate
// to a number; integers are converted to float64.
func CompileWeight(src string) (*WeightProgram, error) {
	prog, err := expr.Compile(src, expr.Env(WeightEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidOption, err, "compile weight expression %q", src)
	}
	return &WeightProgram{src: src, program: prog}, nil
}

// String returns the source of the expression.
func (w *WeightProgram) String() string { return w.src }

// Eval runs the program for one vertex. Weights must be finite and
// non-negative.
func (w *WeightProgram) Eval(env WeightEnv) (float64, error) {
	out, err := vm.Run(w.program, env)
	if err != nil {
		return 0, perrors.Wrap(perrors.ErrCodeWeightEvaluation, err, "evaluate %q", w.src)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, perrors.New(perrors.ErrCodeWeightEvaluation, "%q returned %T, want float64", w.src, out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, perrors.New(perrors.ErrCodeWeightEvaluation, "%q returned %v, want a finite non-negative weight", w.src, v)
	}
	return v, nil
}

// ApplyWeights evaluates w for every vertex of g and stores the result as
// the vertex weight. vis supplies the Visible count; a nil vis reports 0.
// On error g may be partially updated.
func ApplyWeights(g *patrol.Graph, vis *visibility.Map, w *WeightProgram) error {
	for _, v := range g.Vertices() {
		env := WeightEnv{
			X:        v.Position.X,
			Y:        v.Position.Y,
			Degree:   len(v.Neighbors),
			Vertices: g.Len(),
		}
		if vis != nil {
			if s := vis.At(v.Position.X, v.Position.Y); s != nil {
				env.Visible = s.Count()
			}
		}
		weight, err := w.Eval(env)
		if err != nil {
			return fmt.Errorf("vertex %d: %w", v.ID, err)
		}
		v.Weight = weight
	}
	return nil
}
