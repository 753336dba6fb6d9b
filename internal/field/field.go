// Package field implements modular integer arithmetic over a fixed prime
// below 2^32, plus the polynomial operations the power-sum accumulator needs
// to turn a set of power sums into the roots that generated them.
package field

import "fmt"

// Modulus is the largest prime below 2^32, chosen so the 31-bit masked DJB
// image of an element fits in the field without bias.
const Modulus uint64 = 4294967029

// Elem is an integer modulo Modulus.
type Elem uint32

// New reduces x into the field.
func New(x uint64) Elem {
	return Elem(x % Modulus)
}

// Add returns a+b mod Modulus.
func Add(a, b Elem) Elem {
	return Elem((uint64(a) + uint64(b)) % Modulus)
}

// Sub returns a-b mod Modulus.
func Sub(a, b Elem) Elem {
	return Elem((uint64(a) + uint64(Modulus) - uint64(b)) % Modulus)
}

// Neg returns -a mod Modulus.
func Neg(a Elem) Elem {
	if a == 0 {
		return 0
	}
	return Elem(uint64(Modulus) - uint64(a))
}

// Mul returns a*b mod Modulus, lifting to 64 bits to avoid overflow.
func Mul(a, b Elem) Elem {
	return Elem((uint64(a) * uint64(b)) % Modulus)
}

// Inverse returns the multiplicative inverse of a via the extended Euclidean
// algorithm. Panics if a is zero, since zero has no inverse.
func Inverse(a Elem) Elem {
	if a == 0 {
		panic("field: inverse of zero")
	}
	var oldR, r = int64(a), int64(Modulus)
	var oldS, s int64 = 1, 0
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	for oldS < 0 {
		oldS += int64(Modulus)
	}
	return Elem(oldS % int64(Modulus))
}

// Div returns a/b mod Modulus.
func Div(a, b Elem) Elem {
	return Mul(a, Inverse(b))
}

// Pow returns base^exp mod Modulus via square-and-multiply.
func Pow(base Elem, exp uint64) Elem {
	result := Elem(1)
	b := base
	for exp > 0 {
		if exp&1 == 1 {
			result = Mul(result, b)
		}
		b = Mul(b, b)
		exp >>= 1
	}
	return result
}

// Eval evaluates a polynomial given its coefficients highest-degree-first
// (the leading, monic coefficient 1 is implicit and not stored in coeffs)
// at x using Horner's scheme. coeffs holds [c_{n-1}, ..., c_1, c_0] for a
// degree-n monic polynomial x^n + c_{n-1}x^{n-1} + ... + c_0.
func Eval(coeffs []Elem, x Elem) Elem {
	acc := Elem(1) // leading monic term
	for _, c := range coeffs {
		acc = Add(Mul(acc, x), c)
	}
	return acc
}

// Newton applies Newton's identities to a vector of power sums p[0..d-1]
// (p[j] = power sum of exponent j+1) and returns the coefficients of the
// monic degree-d polynomial whose roots are the elements that produced the
// power sums, in Eval's order: [-e_1, e_2, -e_3, ...], already sign-adjusted
// so that x^d - e_1 x^(d-1) + e_2 x^(d-2) - ... has those roots. This mirrors
// the recurrence k*e_k = sum_{j=1..k} (-1)^(j-1) e_{k-j} p_j.
func Newton(p []Elem) []Elem {
	d := len(p)
	if d == 0 {
		return nil
	}
	e := make([]Elem, d+1)
	e[0] = 1
	for k := 1; k <= d; k++ {
		var sum Elem
		for j := 1; j <= k; j++ {
			term := Mul(e[k-j], p[j-1])
			if j%2 == 1 {
				sum = Add(sum, term)
			} else {
				sum = Sub(sum, term)
			}
		}
		e[k] = Div(sum, New(uint64(k)))
	}
	// Convert elementary symmetric polynomials e_1..e_d into the coefficients
	// of x^d - e_1 x^(d-1) + e_2 x^(d-2) - ... i.e. negate e_k for odd k,
	// then drop the leading e_0=1 term.
	coeffs := make([]Elem, d)
	for k := 1; k <= d; k++ {
		if k%2 == 0 {
			coeffs[k-1] = e[k]
		} else {
			coeffs[k-1] = Neg(e[k])
		}
	}
	return coeffs
}

// ErrCouldNotFactor is returned by a Finder (see internal/rootfind) when a
// monic polynomial does not split into the requested number of roots over
// the field — typically evidence that the validated multiset was tampered
// with rather than merely thinned by drops.
var ErrCouldNotFactor = fmt.Errorf("field: could not factor polynomial")
