package matrix

import (
	"fmt"
	"math"
	"strings"
)

// Strategy decides how an asymmetric pair (A = d[i][j], B = d[j][i]) is resolved.
type Strategy uint8

const (
	StrategyMax Strategy = iota
	StrategyMin
	StrategyMean
	// StrategyUseIJ keeps the lower triangle value A.
	StrategyUseIJ
	// StrategyUseJI keeps the upper triangle value B.
	StrategyUseJI
	// StrategySkip drops the matrix instead of repairing it.
	StrategySkip
)

var strategyNames = [...]string{
	StrategyMax:   "max",
	StrategyMin:   "min",
	StrategyMean:  "mean",
	StrategyUseIJ: "ij",
	StrategyUseJI: "ji",
	StrategySkip:  "skip",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// ParseStrategy parses a strategy name as printed by String.
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, name := range strategyNames {
		if name == norm {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown symmetrize strategy %q", s)
}

// SymmetrizePolicy is consulted for every asymmetric matrix. Returning an
// error aborts the load.
type SymmetrizePolicy func(name string) (Strategy, error)

// FixedPolicy applies the same strategy to every matrix.
func FixedPolicy(s Strategy) SymmetrizePolicy {
	return func(string) (Strategy, error) { return s, nil }
}

// RejectPolicy aborts on the first asymmetric matrix.
func RejectPolicy(name string) (Strategy, error) {
	return 0, fmt.Errorf("matrix %q is not symmetric", name)
}

// Symmetrize resolves every pair of the strictly lower triangle with s and
// writes the result to both cells, in place. A NaN operand yields the other
// operand for Max, Min and Mean.
func Symmetrize(d *Dense, s Strategy) error {
	if s >= StrategySkip {
		return fmt.Errorf("cannot symmetrize with strategy %s", s)
	}
	for i := 0; i < d.n; i++ {
		for j := 0; j < i; j++ {
			v := resolve(d.At(i, j), d.At(j, i), s)
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return nil
}

func resolve(a, b float64, s Strategy) float64 {
	switch s {
	case StrategyUseIJ:
		return a
	case StrategyUseJI:
		return b
	}
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	switch s {
	case StrategyMax:
		return math.Max(a, b)
	case StrategyMin:
		return math.Min(a, b)
	default:
		return 0.5 * (a + b)
	}
}
