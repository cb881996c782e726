package estimation

import (
	"errors"
	"fmt"
)

// ErrNoCalculator is returned by Run when no registered calculator applies to the inputs.
var ErrNoCalculator = errors.New("no applicable calculator")

// Engine consults Calculator objects in priority order
type Engine struct {
	calculators []Calculator
}

// NewEngine creates a new Engine with no calculators registered.
func NewEngine() *Engine {
	return &Engine{
		calculators: make([]Calculator, 0),
	}
}

// Register adds a Calculator with the lowest priority so far.
// Register panics if a calculator with the same Name() is already registered.
func (e *Engine) Register(c Calculator) {
	for _, existing := range e.calculators {
		if existing.Name() == c.Name() {
			panic(fmt.Sprintf("estimation: calculator %q already registered", c.Name()))
		}
	}
	e.calculators = append(e.calculators, c)
}

// Run returns the estimation of the first calculator that applies to inputs.
// Negative estimates are clamped to zero.
func (e *Engine) Run(inputs []Param) (Estimation, error) {
	paramMap := make(map[string]Param)
	for _, p := range inputs {
		paramMap[p.Key] = p
	}

	for _, calc := range e.calculators {
		est, err := calc.Calculate(paramMap)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		if err != nil {
			return Estimation{}, fmt.Errorf("%s: %w", calc.Name(), err)
		}

		if est.EstimatedSeconds < 0 {
			est.EstimatedSeconds = 0
		}
		est.Formatted = FormatDuration(est.EstimatedSeconds)
		return est, nil
	}

	return Estimation{}, ErrNoCalculator
}
