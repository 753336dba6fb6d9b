package field

import "testing"

func TestAddSubNeg(t *testing.T) {
	a := New(Modulus - 1)
	b := New(2)
	got := Add(a, b)
	if got != Elem(1) {
		t.Fatalf("expected wraparound to 1, got %d", got)
	}
	if Sub(got, b) != a {
		t.Fatalf("sub did not invert add")
	}
	if Add(a, Neg(a)) != 0 {
		t.Fatalf("a + (-a) should be 0")
	}
}

func TestMulOverflow(t *testing.T) {
	a := Elem(Modulus - 1)
	got := Mul(a, a)
	want := New((Modulus - 1) * (Modulus - 1) % Modulus)
	if got != want {
		t.Fatalf("mul overflow handling wrong: got %d want %d", got, want)
	}
}

func TestInverseAndDiv(t *testing.T) {
	for _, a := range []Elem{1, 2, 3, 12345, Elem(Modulus - 1)} {
		inv := Inverse(a)
		if Mul(a, inv) != 1 {
			t.Fatalf("inverse of %d wrong: a*inv=%d", a, Mul(a, inv))
		}
	}
	if Div(Elem(6), Elem(2)) != Elem(3) {
		t.Fatalf("6/2 should be 3")
	}
}

func TestEvalHorner(t *testing.T) {
	// (x-2)(x-3) = x^2 -5x +6 -> coeffs [-5, 6] (leading coeff of x^2 implicit)
	coeffs := []Elem{Neg(New(5)), New(6)}
	if Eval(coeffs, New(2)) != 0 {
		t.Fatalf("root 2 should evaluate to 0")
	}
	if Eval(coeffs, New(3)) != 0 {
		t.Fatalf("root 3 should evaluate to 0")
	}
	if Eval(coeffs, New(4)) == 0 {
		t.Fatalf("4 is not a root, should not evaluate to 0")
	}
}

func TestNewtonRecoversKnownRoots(t *testing.T) {
	roots := []Elem{2, 3, 5}
	p := make([]Elem, len(roots))
	for _, r := range roots {
		v := Elem(1)
		for j := range p {
			v = Mul(v, r)
			p[j] = Add(p[j], v)
		}
	}
	coeffs := Newton(p)
	for _, r := range roots {
		if Eval(coeffs, r) != 0 {
			t.Fatalf("root %d did not evaluate to zero under recovered coefficients", r)
		}
	}
}
