package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrSingleClass is returned when the training labels contain one class only.
	ErrSingleClass = errors.New("training data must contain both classes")

	// ErrNotFitted is returned by Decision before a successful Fit.
	ErrNotFitted = errors.New("classifier is not fitted")
)

const tau = 1e-12

type options struct {
	c         float64
	tol       float64
	maxIter   int
	cacheRows int
	gamma     float64 // 0 selects the kernel default
	coef0     float64
	degree    int
}

// Option configures an SVC.
type Option func(*options)

// WithC sets the penalty of misclassified samples. Default 1.
func WithC(c float64) Option {
	return func(o *options) { o.c = c }
}

// WithTolerance sets the KKT violation tolerance that stops training. Default 1e-3.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tol = tol }
}

// WithMaxIter bounds the number of optimization steps. Default 1,000,000.
func WithMaxIter(n int) Option {
	return func(o *options) { o.maxIter = n }
}

// WithCacheRows sets how many kernel rows are kept in memory. Default 2048.
func WithCacheRows(n int) Option {
	return func(o *options) { o.cacheRows = n }
}

// WithGamma overrides the kernel coefficient of the rbf and polynomial kernels.
func WithGamma(g float64) Option {
	return func(o *options) { o.gamma = g }
}

// WithPolynomial sets coef0 and degree of the polynomial kernel. Defaults 0 and 3.
func WithPolynomial(coef0 float64, degree int) Option {
	return func(o *options) {
		o.coef0 = coef0
		o.degree = degree
	}
}

// SVC is a binary C-support vector classifier. Labels are 0 and 1; a
// positive decision value favours class 1.
type SVC struct {
	kernelType KernelType
	opts       options

	kernel  Kernel
	support [][]float64
	coef    []float64 // y_i * alpha_i of the support vectors
	rho     float64
	iters   int
}

// New returns an unfitted classifier.
func New(kernelType KernelType, optFns ...Option) *SVC {
	o := options{
		c:         1,
		tol:       1e-3,
		maxIter:   1_000_000,
		cacheRows: 2048,
		degree:    DefaultDegree,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &SVC{kernelType: kernelType, opts: o}
}

// KernelType returns the configured kernel.
func (s *SVC) KernelType() KernelType {
	return s.kernelType
}

// Iterations returns the number of optimization steps of the last Fit.
func (s *SVC) Iterations() int {
	return s.iters
}

// SupportVectors returns the number of support vectors.
func (s *SVC) SupportVectors() int {
	return len(s.support)
}

func (s *SVC) buildKernel(nFeatures int) (Kernel, error) {
	switch s.kernelType {
	case Linear:
		return LinearKernel(), nil
	case RBF:
		g := s.opts.gamma
		if g == 0 {
			g = DefaultRBFGamma
		}
		return RBFKernel(g), nil
	case Polynomial:
		g := s.opts.gamma
		if g == 0 {
			g = 1 / float64(nFeatures)
		}
		return PolynomialKernel(g, s.opts.coef0, s.opts.degree), nil
	default:
		return nil, fmt.Errorf("unknown kernel %s", s.kernelType)
	}
}

// Fit trains the classifier on X (one row per sample) and labels y.
func (s *SVC) Fit(X [][]float64, y []uint8) error {
	return s.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation, checked every 1024 optimization steps.
func (s *SVC) FitContext(ctx context.Context, X [][]float64, y []uint8) error {
	n := len(X)
	if n == 0 {
		return errors.New("no training samples")
	}
	if len(y) != n {
		return fmt.Errorf("got %d labels for %d samples", len(y), n)
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return errors.New("samples have no features")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("sample %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}

	sign := make([]float64, n)
	var pos int
	for i, label := range y {
		switch label {
		case 0:
			sign[i] = -1
		case 1:
			sign[i] = 1
			pos++
		default:
			return fmt.Errorf("label %d of sample %d is not 0 or 1", label, i)
		}
	}
	if pos == 0 || pos == n {
		return ErrSingleClass
	}

	kernel, err := s.buildKernel(nFeatures)
	if err != nil {
		return err
	}
	cache, err := lru.New[int, []float64](max(s.opts.cacheRows, 2))
	if err != nil {
		return err
	}
	qRow := func(i int) []float64 {
		if row, ok := cache.Get(i); ok {
			return row
		}
		row := make([]float64, n)
		for t := range row {
			row[t] = sign[i] * sign[t] * kernel(X[i], X[t])
		}
		cache.Add(i, row)
		return row
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = kernel(X[i], X[i])
	}

	C := s.opts.c
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}

	iter := 0
	for ; iter < s.opts.maxIter; iter++ {
		if iter&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		i, j, gap := selectPair(alpha, grad, sign, C)
		if i < 0 || gap < s.opts.tol {
			break
		}
		qi, qj := qRow(i), qRow(j)
		oldI, oldJ := alpha[i], alpha[j]
		updatePair(alpha, grad, sign, diag, qi, i, j, C)
		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := range grad {
			grad[t] += qi[t]*dI + qj[t]*dJ
		}
	}
	s.iters = iter

	s.kernel = kernel
	s.rho = computeRho(alpha, grad, sign, C)
	s.support = s.support[:0]
	s.coef = s.coef[:0]
	for i, a := range alpha {
		if a > 0 {
			s.support = append(s.support, slices.Clone(X[i]))
			s.coef = append(s.coef, sign[i]*a)
		}
	}
	return nil
}

// selectPair returns the maximal violating pair and its KKT gap.
func selectPair(alpha, grad, sign []float64, C float64) (int, int, float64) {
	gmax, gmin := math.Inf(-1), math.Inf(1)
	i, j := -1, -1
	for t := range alpha {
		v := -sign[t] * grad[t]
		up := (sign[t] > 0 && alpha[t] < C) || (sign[t] < 0 && alpha[t] > 0)
		low := (sign[t] > 0 && alpha[t] > 0) || (sign[t] < 0 && alpha[t] < C)
		if up && v > gmax {
			gmax, i = v, t
		}
		if low && v < gmin {
			gmin, j = v, t
		}
	}
	if i < 0 || j < 0 {
		return -1, -1, 0
	}
	return i, j, gmax - gmin
}

// updatePair solves the two-variable subproblem analytically and clips the
// result to the box [0, C] while keeping y·alpha constant.
func updatePair(alpha, grad, sign, diag, qi []float64, i, j int, C float64) {
	qii, qjj, qij := diag[i], diag[j], qi[j]
	if sign[i] != sign[j] {
		quad := qii + qjj + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-grad[i] - grad[j]) / quad
		diff := alpha[i] - alpha[j]
		alpha[i] += delta
		alpha[j] += delta
		if diff > 0 {
			if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = diff
			}
		} else if alpha[i] < 0 {
			alpha[i] = 0
			alpha[j] = -diff
		}
		if diff > 0 {
			if alpha[i] > C {
				alpha[i] = C
				alpha[j] = C - diff
			}
		} else if alpha[j] > C {
			alpha[j] = C
			alpha[i] = C + diff
		}
		return
	}

	quad := qii + qjj - 2*qij
	if quad <= 0 {
		quad = tau
	}
	delta := (grad[i] - grad[j]) / quad
	sum := alpha[i] + alpha[j]
	alpha[i] -= delta
	alpha[j] += delta
	if sum > C {
		if alpha[i] > C {
			alpha[i] = C
			alpha[j] = sum - C
		}
	} else if alpha[j] < 0 {
		alpha[j] = 0
		alpha[i] = sum
	}
	if sum > C {
		if alpha[j] > C {
			alpha[j] = C
			alpha[i] = sum - C
		}
	} else if alpha[i] < 0 {
		alpha[i] = 0
		alpha[j] = sum
	}
}

func computeRho(alpha, grad, sign []float64, C float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var (
		sumFree float64
		nFree   int
	)
	for t := range alpha {
		yg := sign[t] * grad[t]
		switch {
		case alpha[t] >= C:
			if sign[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if sign[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// Decision returns the decision function value for x.
func (s *SVC) Decision(x []float64) (float64, error) {
	if s.kernel == nil {
		return 0, ErrNotFitted
	}
	v := -s.rho
	for k, sv := range s.support {
		v += s.coef[k] * s.kernel(sv, x)
	}
	return v, nil
}

// Predict returns the predicted label of x.
func (s *SVC) Predict(x []float64) (uint8, error) {
	v, err := s.Decision(x)
	if err != nil {
		return 0, err
	}
	if v > 0 {
		return 1, nil
	}
	return 0, nil
}
