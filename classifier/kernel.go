// Package classifier implements a C-support vector classifier trained with
// sequential minimal optimization.
//
// The fused score of a pair is the signed distance to the separating
// hyperplane, as returned by SVC.Decision.
package classifier

import (
	"fmt"
	"math"
	"strings"
)

// KernelType selects the kernel function.
type KernelType uint8

const (
	Linear KernelType = iota
	RBF
	Polynomial
)

func (k KernelType) String() string {
	switch k {
	case Linear:
		return "linear"
	case RBF:
		return "rbf"
	case Polynomial:
		return "polynomial"
	default:
		return fmt.Sprintf("KernelType(%d)", k)
	}
}

// ParseKernelType accepts "linear", "rbf" and "polynomial" (or "poly").
func ParseKernelType(s string) (KernelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "rbf":
		return RBF, nil
	case "polynomial", "poly":
		return Polynomial, nil
	default:
		return 0, fmt.Errorf("unknown kernel %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k KernelType) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KernelType) UnmarshalText(text []byte) error {
	parsed, err := ParseKernelType(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Kernel evaluates k(x, y).
type Kernel func(x, y []float64) float64

// Default kernel parameters.
const (
	DefaultRBFGamma = 0.7
	DefaultDegree   = 3
)

func dot(x, y []float64) float64 {
	var s float64
	for i := range x {
		s += x[i] * y[i]
	}
	return s
}

// LinearKernel returns x·y.
func LinearKernel() Kernel {
	return dot
}

// RBFKernel returns exp(-gamma*|x-y|²).
func RBFKernel(gamma float64) Kernel {
	return func(x, y []float64) float64 {
		var d float64
		for i := range x {
			diff := x[i] - y[i]
			d += diff * diff
		}
		return math.Exp(-gamma * d)
	}
}

// PolynomialKernel returns (gamma*x·y + coef0)^degree.
func PolynomialKernel(gamma, coef0 float64, degree int) Kernel {
	return func(x, y []float64) float64 {
		base := gamma*dot(x, y) + coef0
		out := 1.0
		for range degree {
			out *= base
		}
		return out
	}
}
