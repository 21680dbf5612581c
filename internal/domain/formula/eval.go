package formula

import (
	"errors"
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrInvalidFormula = errors.New("invalid formula")

// Scope is the complete variable environment a formula may reference.
// Compiling against it makes any other identifier a compile error, which is
// what keeps user expressions arithmetic-only.
type Scope struct {
	Values  []float64 `expr:"values"`
	Targets []float64 `expr:"targets"`
	Target  float64   `expr:"target"`
	Weight  float64   `expr:"weight"`
}

// canonicalScope is the fixed sample environment used at definition time.
var canonicalScope = Scope{
	Values:  []float64{1, 2, 3},
	Targets: []float64{1, 2, 3},
	Target:  1,
	Weight:  1,
}

func Compile(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.Env(Scope{}), expr.AsFloat64())
}

// Evaluate runs a formula against the scope and reports ok=false instead of
// an error: a broken per-KPI formula must degrade to zero for that KPI only,
// never abort the caller's aggregation pass.
func Evaluate(expression string, scope Scope) (float64, bool) {
	program, err := Compile(expression)
	if err != nil {
		return 0, false
	}
	return run(program, scope)
}

func run(program *vm.Program, scope Scope) (value float64, ok bool) {
	defer func() {
		if recover() != nil {
			value, ok = 0, false
		}
	}()

	out, err := expr.Run(program, scope)
	if err != nil {
		return 0, false
	}
	result, isFloat := out.(float64)
	if !isFloat || math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, false
	}
	return round2(result), true
}

// Validate is the definition-time gate: a formula that cannot compile or that
// fails against the canonical scope never reaches runtime aggregation.
func Validate(expression string) error {
	program, err := Compile(expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormula, err)
	}
	if _, ok := run(program, canonicalScope); !ok {
		return fmt.Errorf("%w: expression does not evaluate to a finite number", ErrInvalidFormula)
	}
	return nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
