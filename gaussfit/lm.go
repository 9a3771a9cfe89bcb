package gaussfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	lambdaUp   = 10
	lambdaDown = 10
	lambdaMax  = 1e12
	lambdaMin  = 1e-15

	// diagFloor keeps the damped system solvable when a parameter has no
	// influence on the model, e.g. x0 of a zero amplitude peak
	diagFloor = 1e-12
)

// Settings control the Levenberg-Marquardt solver
type Settings struct {
	// MaxIterations is the maximum number of accepted steps
	MaxIterations int `yaml:"MaxIterations" koanf:"MaxIterations"`

	// Tolerance is the relative cost and step size at which the solver stops
	Tolerance float64 `yaml:"Tolerance" koanf:"Tolerance"`

	// InitialLambda is the starting damping factor
	InitialLambda float64 `yaml:"InitialLambda" koanf:"InitialLambda"`
}

// DefaultSettings returns the solver defaults
func DefaultSettings() Settings {
	return Settings{MaxIterations: 200, Tolerance: 1e-10, InitialLambda: 1e-3}
}

// withDefaults fills zero fields from DefaultSettings
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.InitialLambda <= 0 {
		s.InitialLambda = d.InitialLambda
	}
	return s
}

type model interface {
	eval(theta, out []float64)
	jacobian(theta []float64, set func(row, col int, v float64))
}

// cost fills resid with y - f(theta) and returns the sum of squares
func cost(m model, theta, y, resid []float64) float64 {
	m.eval(theta, resid)
	floats.SubTo(resid, y, resid)
	return floats.Dot(resid, resid)
}

// levmar minimizes |y - f(theta)|^2 starting from theta0.  converged is false
// if the iteration budget ran out first, or if the solver stalled away from a
// stationary point.
func levmar(m model, y, theta0 []float64, s Settings) (theta []float64, converged bool) {
	n, p := len(y), len(theta0)
	theta = make([]float64, p)
	copy(theta, theta0)
	trial := make([]float64, p)
	resid := make([]float64, n)
	trialResid := make([]float64, n)

	J := mat.NewDense(n, p, nil)
	JtJ := mat.NewSymDense(p, nil)
	A := mat.NewSymDense(p, nil)
	g := mat.NewVecDense(p, nil)
	delta := mat.NewVecDense(p, nil)
	var chol mat.Cholesky

	lambda := s.InitialLambda
	c := cost(m, theta, y, resid)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return theta, false
	}
	for iter := 0; iter < s.MaxIterations; iter++ {
		if c == 0 {
			return theta, true
		}
		J.Zero()
		m.jacobian(theta, J.Set)
		JtJ.SymOuterK(1, J.T())
		g.MulVec(J.T(), mat.NewVecDense(n, resid))

		for {
			A.CopySym(JtJ)
			for i := 0; i < p; i++ {
				d := JtJ.At(i, i)
				A.SetSym(i, i, d+lambda*math.Max(d, diagFloor))
			}
			if err := solve(&chol, A, g, delta); err == nil {
				for i := range trial {
					trial[i] = theta[i] + delta.AtVec(i)
				}
				if tc := cost(m, trial, y, trialResid); tc < c {
					step := mat.Norm(delta, 2)
					rel := (c - tc) / c
					copy(theta, trial)
					copy(resid, trialResid)
					c = tc
					lambda = math.Max(lambda/lambdaDown, lambdaMin)
					if rel < s.Tolerance || step <= s.Tolerance*(floats.Norm(theta, 2)+s.Tolerance) {
						return theta, true
					}
					break
				}
			}
			lambda *= lambdaUp
			if lambda > lambdaMax {
				// no step goes downhill at any damping.  That is a minimum
				// only if the gradient vanishes too
				return theta, stationary(J, g, resid, y, s.Tolerance)
			}
		}
	}
	return theta, false
}

// stationary reports whether the gradient g = J^T r is negligible next to
// |J| |r|, or next to |J| |y| when the fit is nearly exact
func stationary(J *mat.Dense, g *mat.VecDense, resid, y []float64, tol float64) bool {
	gn, jn := mat.Norm(g, 2), mat.Norm(J, 2)
	return gn <= math.Sqrt(tol)*jn*floats.Norm(resid, 2) || gn <= tol*jn*floats.Norm(y, 2)
}

// solve solves A x = b by Cholesky, falling back to a general solve if A is
// not numerically positive definite
func solve(chol *mat.Cholesky, A *mat.SymDense, b, x *mat.VecDense) error {
	var err error
	if chol.Factorize(A) {
		err = chol.SolveVecTo(x, b)
	} else {
		err = x.SolveVec(A, b)
	}
	// ill conditioning still yields a usable step; the cost test decides
	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil
	}
	return err
}
