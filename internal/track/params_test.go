package track

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testParameters() Parameters {
	p := NewParameters()
	p.Vec = DVec{250.0, 245.0, -70.0, 100.0, 0.5, 0.1}
	// a well-conditioned covariance with mild correlations
	diag := []float64{4.0, 4.0, 9.0, 9.0, 1e-4, 1e-2}
	for i := 0; i < NParams; i++ {
		p.Cov.SetSym(i, i, diag[i])
	}
	p.Cov.SetSym(0, 1, 0.5)
	p.Cov.SetSym(2, 3, -0.8)
	return p
}

func TestWeightsRoundTrip(t *testing.T) {
	p := testParameters()
	w, err := p.Weights()
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	q, err := w.Parameters()
	if err != nil {
		t.Fatalf("Parameters: %v", err)
	}
	for i := 0; i < NParams; i++ {
		if math.Abs(q.Vec[i]-p.Vec[i]) > 1e-9*(1+math.Abs(p.Vec[i])) {
			t.Errorf("param %d: %v != %v", i, q.Vec[i], p.Vec[i])
		}
		for j := 0; j <= i; j++ {
			if math.Abs(q.Cov.At(i, j)-p.Cov.At(i, j)) > 1e-9*(1+math.Abs(p.Cov.At(i, j))) {
				t.Errorf("cov (%d,%d): %v != %v", i, j, q.Cov.At(i, j), p.Cov.At(i, j))
			}
		}
	}
}

func TestWeightsAddIsInformationSum(t *testing.T) {
	p := testParameters()
	w, err := p.Weights()
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	sum := NewWeights()
	sum.AddWeights(w)
	sum.AddWeights(w)
	q, err := sum.Parameters()
	if err != nil {
		t.Fatalf("Parameters: %v", err)
	}
	// doubling the information halves the covariance, parameters fixed
	for i := 0; i < NParams; i++ {
		if math.Abs(q.Vec[i]-p.Vec[i]) > 1e-9*(1+math.Abs(p.Vec[i])) {
			t.Errorf("param %d moved: %v != %v", i, q.Vec[i], p.Vec[i])
		}
		if math.Abs(q.Cov.At(i, i)-0.5*p.Cov.At(i, i)) > 1e-9 {
			t.Errorf("cov %d: %v != %v/2", i, q.Cov.At(i, i), p.Cov.At(i, i))
		}
	}
}

func TestWeightsNotPositiveDefinite(t *testing.T) {
	w := NewWeights()
	// rank-one information cannot be inverted
	w.RankOne(DVec{1, 0, 0, 0, 0, 0}, 1.0, 0.0)
	if _, err := w.Parameters(); err == nil {
		t.Fatal("expected inversion failure for rank-deficient weights")
	}
}

func TestRankOneAccumulation(t *testing.T) {
	w := NewWeights()
	v := DVec{1, 2, 0, 0, 0, 0}
	w.RankOne(v, 0.25, 4.0)
	want := mat.NewSymDense(NParams, nil)
	want.SetSym(0, 0, 0.25)
	want.SetSym(0, 1, 0.5)
	want.SetSym(1, 1, 1.0)
	for i := 0; i < 2; i++ {
		for j := 0; j <= i; j++ {
			if math.Abs(w.Mat.At(i, j)-want.At(i, j)) > 1e-12 {
				t.Errorf("mat (%d,%d) = %v, want %v", i, j, w.Mat.At(i, j), want.At(i, j))
			}
		}
	}
	if math.Abs(w.Vec[0]-1.0) > 1e-12 || math.Abs(w.Vec[1]-2.0) > 1e-12 {
		t.Errorf("vec = %v, want scale*rhs*v", w.Vec)
	}
}
