// Package rootfind factors a monic polynomial over GF(q) into its roots —
// the "polynomial root-finding callout" the power-sum accumulator needs to
// turn a recovered set of Newton coefficients back into the djb images of
// the elements that produced them (spec.md §4.6, §6). It is modeled as a
// pluggable Finder so a faster native backend can stand in for the default
// pure-Go implementation without the accumulator caring which is in use —
// the same backend-behind-an-interface shape the rest of the repo uses for
// its other external solver callout (internal/ilp).
package rootfind

import (
	"fmt"

	"github.com/rawblock/quack-go/internal/field"
	"github.com/rawblock/quack-go/internal/seed"
)

// Root is a single root of a factored polynomial together with the number
// of times it divides the polynomial — the power-sum accumulator's
// preimage-collision handling (spec.md §4.6 step 8) needs multiplicities,
// not just distinct roots, to size its Cartesian-product enumeration.
type Root struct {
	Value        field.Elem
	Multiplicity int
}

// Finder factors a monic polynomial of the given degree over GF(q) into its
// roots, or reports that it does not split that way.
type Finder interface {
	FindRoots(coeffs []field.Elem, degree int) ([]Root, error)
}

// poly is a polynomial over GF(q), coefficients ordered low degree first
// (poly[i] is the coefficient of x^i), always kept trimmed of trailing
// zero coefficients except for the zero polynomial poly{0}. This is the
// opposite convention from field.Eval's high-degree-first slice; the two
// never need to interoperate beyond the conversion at FindRoots' boundary.
type poly []field.Elem

func trim(p poly) poly {
	n := len(p)
	for n > 1 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

func isZero(p poly) bool {
	p = trim(p)
	return len(p) == 1 && p[0] == 0
}

func degree(p poly) int {
	p = trim(p)
	if isZero(p) {
		return -1
	}
	return len(p) - 1
}

func polyAdd(a, b poly) poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(poly, n)
	for i := 0; i < n; i++ {
		var av, bv field.Elem
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = field.Add(av, bv)
	}
	return trim(out)
}

func polySub(a, b poly) poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(poly, n)
	for i := 0; i < n; i++ {
		var av, bv field.Elem
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = field.Sub(av, bv)
	}
	return trim(out)
}

func polyMul(a, b poly) poly {
	if isZero(a) || isZero(b) {
		return poly{0}
	}
	out := make(poly, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] = field.Add(out[i+j], field.Mul(av, bv))
		}
	}
	return trim(out)
}

// polyDivMod divides a by b (b nonzero) and returns the quotient and
// remainder; b need not be monic, since GF(q) makes every nonzero leading
// coefficient invertible.
func polyDivMod(a, b poly) (q, r poly) {
	b = trim(b)
	db := degree(b)
	if db < 0 {
		panic("rootfind: division by zero polynomial")
	}
	leadInv := field.Inverse(b[db])
	rem := append(poly{}, trim(a)...)
	var quot poly
	for degree(rem) >= db {
		dr := degree(rem)
		coeff := field.Mul(rem[dr], leadInv)
		shift := dr - db
		if len(quot) < shift+1 {
			nq := make(poly, shift+1)
			copy(nq, quot)
			quot = nq
		}
		quot[shift] = coeff
		for i, bv := range b {
			idx := i + shift
			rem[idx] = field.Sub(rem[idx], field.Mul(coeff, bv))
		}
		rem = trim(rem)
	}
	if len(quot) == 0 {
		quot = poly{0}
	}
	return trim(quot), rem
}

func polyMod(a, b poly) poly {
	_, r := polyDivMod(a, b)
	return r
}

func polyPowMod(base poly, exp uint64, mod poly) poly {
	result := poly{1}
	b := polyMod(base, mod)
	for exp > 0 {
		if exp&1 == 1 {
			result = polyMod(polyMul(result, b), mod)
		}
		b = polyMod(polyMul(b, b), mod)
		exp >>= 1
	}
	return result
}

func polyGCD(a, b poly) poly {
	a, b = trim(a), trim(b)
	for !isZero(b) {
		_, r := polyDivMod(a, b)
		a, b = b, r
	}
	d := degree(a)
	if d < 0 {
		return poly{0}
	}
	return monicNormalize(a)
}

func monicNormalize(p poly) poly {
	d := degree(p)
	if d < 0 {
		return p
	}
	lead := p[d]
	if lead == 1 {
		return p
	}
	inv := field.Inverse(lead)
	out := make(poly, len(p))
	for i, v := range p {
		out[i] = field.Mul(v, inv)
	}
	return out
}

// derivative computes the formal derivative of p over GF(q).
func derivative(p poly) poly {
	if len(p) <= 1 {
		return poly{0}
	}
	out := make(poly, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = field.Mul(field.New(uint64(i)), p[i])
	}
	return trim(out)
}

// multiplicityOf counts how many times (x - root) divides f.
func multiplicityOf(f poly, root field.Elem) int {
	m := 0
	cur := f
	divisor := poly{field.Neg(root), 1}
	for degree(cur) >= 0 {
		q, r := polyDivMod(cur, divisor)
		if !isZero(r) {
			break
		}
		cur = q
		m++
	}
	return m
}

// DefaultFinder is the pure-Go reference Finder: equal-degree splitting
// (Cantor-Zassenhaus) over the squarefree core of the polynomial, recovering
// multiplicities afterward by repeated synthetic division against the
// original polynomial.
type DefaultFinder struct {
	Rand seed.Source
}

// NewDefaultFinder builds a DefaultFinder. A nil src falls back to
// seed.Default (OS randomness); callers that need reproducible factoring
// runs should pass a seed.Deterministic source instead.
func NewDefaultFinder(src seed.Source) *DefaultFinder {
	if src == nil {
		src = seed.Default
	}
	return &DefaultFinder{Rand: src}
}

// FindRoots factors a monic polynomial given in field.Eval's high-degree-
// first convention (coeffs[0] is the coefficient of x^(degree-1), and so
// on) into its roots with multiplicities summing to deg.
func (f *DefaultFinder) FindRoots(coeffs []field.Elem, deg int) ([]Root, error) {
	if deg == 0 {
		return nil, nil
	}
	if len(coeffs) != deg {
		return nil, fmt.Errorf("rootfind: expected %d coefficients, got %d", deg, len(coeffs))
	}

	p := make(poly, deg+1)
	p[deg] = 1
	for i, c := range coeffs {
		p[deg-1-i] = c
	}

	var squarefreeCore poly
	fp := derivative(p)
	if isZero(fp) {
		squarefreeCore = p
	} else {
		g := polyGCD(p, fp)
		if degree(g) <= 0 {
			squarefreeCore = p
		} else {
			q, _ := polyDivMod(p, g)
			squarefreeCore = monicNormalize(q)
		}
	}

	distinctRoots, err := f.splitDistinct(squarefreeCore)
	if err != nil {
		return nil, err
	}

	out := make([]Root, 0, len(distinctRoots))
	total := 0
	for _, r := range distinctRoots {
		m := multiplicityOf(p, r)
		out = append(out, Root{Value: r, Multiplicity: m})
		total += m
	}
	if total != deg {
		return nil, field.ErrCouldNotFactor
	}
	return out, nil
}

// maxSplitAttempts bounds retries of the randomized splitting step per
// polynomial; a degree-d squarefree polynomial over a field this large
// splits with overwhelming probability well before this many attempts.
const maxSplitAttempts = 200

// splitDistinct assumes p is squarefree and fully splits over GF(q) (true
// whenever the polynomial really did come from Newton's identities applied
// to djb images of real dropped elements); any other shape is reported as
// field.ErrCouldNotFactor rather than guessed at.
func (f *DefaultFinder) splitDistinct(p poly) ([]field.Elem, error) {
	var roots []field.Elem
	var rec func(p poly) error
	rec = func(p poly) error {
		d := degree(p)
		if d <= 0 {
			return nil
		}
		p = monicNormalize(p)
		if d == 1 {
			roots = append(roots, field.Neg(p[0]))
			return nil
		}
		exp := (field.Modulus - 1) / 2
		for attempt := 0; attempt < maxSplitAttempts; attempt++ {
			s := field.New(f.Rand.Uint64())
			g := polyPowMod(poly{s, 1}, exp, p)
			g = polySub(g, poly{1})
			h := polyGCD(g, p)
			hd := degree(h)
			if hd > 0 && hd < d {
				if err := rec(h); err != nil {
					return err
				}
				quot, _ := polyDivMod(p, h)
				return rec(monicNormalize(quot))
			}
		}
		return field.ErrCouldNotFactor
	}
	err := rec(p)
	return roots, err
}
