package dist

import (
	"math"
	"testing"
)

func TestTruncNormalBounds(t *testing.T) {
	rng := New(1)
	for i := 0; i < 10000; i++ {
		v := TruncNormal(rng, 14.0, 3.5, 5.0, 30.0, 0)
		if v < 5.0 || v > 30.0 {
			t.Fatalf("draw %f outside [5, 30]", v)
		}
	}
}

func TestTruncNormalMean(t *testing.T) {
	rng := New(2)
	sum := 0.0
	n := 20000
	for i := 0; i < n; i++ {
		sum += TruncNormal(rng, 118.0, 20.0, 50.0, 400.0, 0)
	}
	mean := sum / float64(n)
	if math.Abs(mean-118.0) > 1.0 {
		t.Errorf("expected mean near 118, got %f", mean)
	}
}

func TestTruncNormalShift(t *testing.T) {
	rng := New(3)
	sum := 0.0
	n := 20000
	for i := 0; i < n; i++ {
		sum += TruncNormal(rng, 118.0, 20.0, 50.0, 400.0, 10.0)
	}
	mean := sum / float64(n)
	if math.Abs(mean-128.0) > 1.0 {
		t.Errorf("expected shifted mean near 128, got %f", mean)
	}
}

func TestTruncNormalShiftFarOutsideBounds(t *testing.T) {
	rng := New(4)
	// Shifted mean well above hi: rejection exhausts and clamps.
	v := TruncNormal(rng, 14.0, 0.001, 5.0, 30.0, 1000.0)
	if v != 30.0 {
		t.Errorf("expected clamp to 30, got %f", v)
	}
	v = TruncNormal(rng, 14.0, 0.001, 5.0, 30.0, -1000.0)
	if v != 5.0 {
		t.Errorf("expected clamp to 5, got %f", v)
	}
}

func TestBernoulliRate(t *testing.T) {
	rng := New(5)
	n := 50000
	hits := 0
	for i := 0; i < n; i++ {
		if Bernoulli(rng, 0.22, 1.0) {
			hits++
		}
	}
	rate := float64(hits) / float64(n)
	if math.Abs(rate-0.22) > 0.01 {
		t.Errorf("expected rate near 0.22, got %f", rate)
	}
}

func TestBernoulliMultiplier(t *testing.T) {
	rng := New(6)
	n := 50000
	hits := 0
	for i := 0; i < n; i++ {
		if Bernoulli(rng, 0.10, 2.0) {
			hits++
		}
	}
	rate := float64(hits) / float64(n)
	if math.Abs(rate-0.20) > 0.01 {
		t.Errorf("expected rate near 0.20, got %f", rate)
	}

	// Effective probability clamps at 1.
	for i := 0; i < 100; i++ {
		if !Bernoulli(rng, 0.5, 10.0) {
			t.Fatal("expected always-true with clamped probability 1")
		}
	}
}

func TestCategoricalProportions(t *testing.T) {
	rng := New(7)
	weights := []float64{0.55, 0.30, 0.15}
	n := 60000
	counts := make([]int, 3)
	for i := 0; i < n; i++ {
		counts[Categorical(rng, weights, -1, 1.0)]++
	}
	for i, w := range weights {
		got := float64(counts[i]) / float64(n)
		if math.Abs(got-w) > 0.01 {
			t.Errorf("category %d: expected proportion near %f, got %f", i, w, got)
		}
	}
}

func TestCategoricalBias(t *testing.T) {
	rng := New(8)
	weights := []float64{0.5, 0.5}
	n := 60000
	hits := 0
	for i := 0; i < n; i++ {
		if Categorical(rng, weights, 0, 3.0) == 0 {
			hits++
		}
	}
	// Effective weights 1.5 : 0.5, so 75%.
	got := float64(hits) / float64(n)
	if math.Abs(got-0.75) > 0.01 {
		t.Errorf("expected biased proportion near 0.75, got %f", got)
	}
}

func TestCategoricalZeroWeightsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero weights")
		}
	}()
	Categorical(New(9), []float64{0, 0}, -1, 1.0)
}

func TestNonNegNormalFloor(t *testing.T) {
	rng := New(10)
	for i := 0; i < 10000; i++ {
		if v := NonNegNormal(rng, 0.8, 0.6, 0); v < 0 {
			t.Fatalf("draw %f below zero", v)
		}
	}
}

func TestUniformRange(t *testing.T) {
	rng := New(11)
	for i := 0; i < 10000; i++ {
		v := Uniform(rng, 0.05, 0.15)
		if v < 0.05 || v >= 0.15 {
			t.Fatalf("draw %f outside [0.05, 0.15)", v)
		}
	}
}

func TestNewDeterminism(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("identical seeds must produce identical streams")
		}
	}
	if New(42).Float64() == New(43).Float64() {
		t.Error("different seeds should produce different streams")
	}
}
