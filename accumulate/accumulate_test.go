package accumulate

import (
	"math"
	"testing"

	"bitbucket.org/popgen/admixture/geno"
	"bitbucket.org/popgen/admixture/rng"
	"bitbucket.org/popgen/admixture/sstat"
)

func testFixture() (*geno.Dataset, *geno.GeneIndex, *sstat.Store) {
	ds := &geno.Dataset{
		N:          2,
		L:          1,
		Ploidy:     []int{2, 2},
		J:          []int{2},
		Data:       [][][]int{{{1, 2}}, {{2, 1}}},
		PopIndex:   []int{0, 1},
		UniquePops: []string{"popA", "popB"},
	}
	idx := geno.NewGeneIndex(ds)
	store := sstat.New(ds, idx, 2, 1.0, false)
	store.Alpha = 1.0
	calls := 0
	store.Reset(func() int { k := calls % 2; calls++; return k }, true)
	return ds, idx, store
}

func TestLogLikeGroupFinite(t *testing.T) {
	ds, _, store := testFixture()
	ll := LogLikeGroup(store, ds, 1.0)
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		t.Fatalf("LogLikeGroup returned non-finite value: %v", ll)
	}
}

func TestAccumulateRunningSums(t *testing.T) {
	a := New()
	a.Accumulate(-3.0)
	a.Accumulate(-5.0)
	if a.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", a.Samples)
	}
	if a.SumLogLike != -8.0 {
		t.Fatalf("SumLogLike = %v, want -8", a.SumLogLike)
	}
	wantMean := -4.0
	if got := a.MeanLogLike(); got != wantMean {
		t.Fatalf("MeanLogLike = %v, want %v", got, wantMean)
	}
}

func TestHarmonicMeanEvidenceMatchesDirectComputation(t *testing.T) {
	a := New()
	samples := []float64{-2.0, -3.5, -1.0, -4.0}
	for _, s := range samples {
		a.Accumulate(s)
	}
	// direct harmonic mean: log(n) - log(sum(exp(-s)))
	sumInv := 0.0
	for _, s := range samples {
		sumInv += math.Exp(-s)
	}
	want := math.Log(float64(len(samples))) - math.Log(sumInv)
	got := a.HarmonicMeanEvidence()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("HarmonicMeanEvidence = %v, want %v", got, want)
	}
}

func TestDrawFreqsNormalizes(t *testing.T) {
	ds, _, store := testFixture()
	src := rng.New(5)
	DrawFreqs(store, ds, 1.0, src)

	for k := 0; k < store.K; k++ {
		for l := 0; l < store.L; l++ {
			sum := 0.0
			for j := 1; j < len(store.AlleleFreqs[k][l]); j++ {
				sum += store.AlleleFreqs[k][l][j]
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("AlleleFreqs[%d][%d] sums to %v, want 1", k, l, sum)
			}
		}
	}
	for i := 0; i < store.N; i++ {
		sum := 0.0
		for _, v := range store.AdmixFreqs[i] {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("AdmixFreqs[%d] sums to %v, want 1", i, sum)
		}
	}
}

func TestLogLikeJointFiniteAfterDraw(t *testing.T) {
	ds, idx, store := testFixture()
	src := rng.New(6)
	DrawFreqs(store, ds, 1.0, src)
	ll := LogLikeJoint(store, idx, ds)
	if math.IsNaN(ll) {
		t.Fatal("LogLikeJoint returned NaN")
	}
}

func TestMeanQGeneMatchesUniformAccumulation(t *testing.T) {
	_, _, store := testFixture()
	// Simulate 4 iterations all producing a uniform Q row.
	samples := 4
	logHalf := -math.Log(2)
	for iter := 0; iter < samples; iter++ {
		for g := range store.LogQnew {
			for k := range store.LogQnew[g] {
				store.LogQnew[g][k] = logHalf
			}
		}
		AccumulateQ(store)
	}
	meanQ := MeanQGene(store, samples)
	for g := range meanQ {
		for k, v := range meanQ[g] {
			if math.Abs(v-0.5) > 1e-9 {
				t.Errorf("meanQ[%d][%d] = %v, want 0.5", g, k, v)
			}
		}
	}
}

func TestMeanQIndividualAndPopulationAggregate(t *testing.T) {
	ds, idx, store := testFixture()
	samples := 2
	for iter := 0; iter < samples; iter++ {
		for g := range store.LogQnew {
			store.LogQnew[g][0] = math.Log(0.3)
			store.LogQnew[g][1] = math.Log(0.7)
		}
		AccumulateQ(store)
	}
	meanQGene := MeanQGene(store, samples)
	meanQInd := MeanQIndividual(meanQGene, ds, idx, store.K)
	for i := range meanQInd {
		if math.Abs(meanQInd[i][0]-0.3) > 1e-9 || math.Abs(meanQInd[i][1]-0.7) > 1e-9 {
			t.Errorf("meanQInd[%d] = %v, want [0.3 0.7]", i, meanQInd[i])
		}
	}
	meanQPop := MeanQPopulation(meanQInd, ds, store.K)
	if len(meanQPop) != 2 {
		t.Fatalf("expected 2 populations, got %d", len(meanQPop))
	}
	for p := range meanQPop {
		if math.Abs(meanQPop[p][0]-0.3) > 1e-9 {
			t.Errorf("meanQPop[%d][0] = %v, want 0.3", p, meanQPop[p][0])
		}
	}
}
