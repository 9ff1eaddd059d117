// Package accumulate computes the per-iteration collapsed marginal
// likelihood, the running sums and harmonic-mean evidence estimator
// derived from it, the optional frequency draws and joint likelihood, and
// the final gene/individual/population-level mean Q matrices once a chain
// finishes.
package accumulate

import (
	"math"

	"bitbucket.org/popgen/admixture/geno"
	"bitbucket.org/popgen/admixture/rng"
	"bitbucket.org/popgen/admixture/sstat"
)

// Accumulator carries the running sums a chain maintains across its
// post-burn-in iterations. It holds no reference to the store or dataset
// between calls; every method takes what it needs explicitly.
type Accumulator struct {
	Samples int

	SumLogLike   float64
	SumLogLikeSq float64

	// H is the running harmonic-mean accumulator in log space,
	// initialized to log(0) = -Inf.
	H float64

	SumLogLikeJoint float64
}

// New returns a zeroed Accumulator ready for a chain's post-burn-in loop.
func New() *Accumulator {
	return &Accumulator{H: math.Inf(-1)}
}

// LogLikeGroup computes the collapsed marginal likelihood given the
// current grouping only (§4.6), from the allele count tensors in store.
func LogLikeGroup(store *sstat.Store, ds *geno.Dataset, lambda float64) float64 {
	total := 0.0
	for k := 0; k < store.K; k++ {
		for l := 0; l < store.L; l++ {
			jl := float64(ds.J[l])
			total += rng.LogGamma(jl*lambda) - rng.LogGamma(jl*lambda+store.AlleleCountsTotal[k][l])
			for _, c := range store.AlleleCounts[k][l] {
				total += rng.LogGamma(lambda+c) - rng.LogGamma(lambda)
			}
		}
	}
	return total
}

// Accumulate folds one post-burn-in iteration's logLikeGroup into the
// running sums and the harmonic-mean evidence accumulator.
func (a *Accumulator) Accumulate(logLikeGroup float64) {
	a.Samples++
	a.SumLogLike += logLikeGroup
	a.SumLogLikeSq += logLikeGroup * logLikeGroup
	a.H = rng.LogSum(a.H, -logLikeGroup)
}

// HarmonicMeanEvidence returns the harmonic-mean log-evidence estimate,
// log(samples) - H. Callers should not trust it (or call it) before at
// least one sample has been accumulated.
func (a *Accumulator) HarmonicMeanEvidence() float64 {
	return math.Log(float64(a.Samples)) - a.H
}

// MeanLogLike and VarianceLogLike expose the running summary statistics
// of the logLikeGroup trace.
func (a *Accumulator) MeanLogLike() float64 {
	if a.Samples == 0 {
		return 0
	}
	return a.SumLogLike / float64(a.Samples)
}

func (a *Accumulator) VarianceLogLike() float64 {
	if a.Samples == 0 {
		return 0
	}
	n := float64(a.Samples)
	mean := a.SumLogLike / n
	return a.SumLogLikeSq/n - mean*mean
}

// DrawFreqs draws alleleFreqs[k][l][*] and admixFreqs[i][*] via
// independent gamma-then-normalize draws, with shape alleleCounts+lambda
// and admixCounts+alpha respectively, and stores them into store.
func DrawFreqs(store *sstat.Store, ds *geno.Dataset, lambda float64, src *rng.Source) {
	if store.AlleleFreqs == nil {
		store.AlleleFreqs = make([][][]float64, store.K)
		for k := 0; k < store.K; k++ {
			store.AlleleFreqs[k] = make([][]float64, store.L)
			for l := 0; l < store.L; l++ {
				store.AlleleFreqs[k][l] = make([]float64, ds.J[l]+1)
			}
		}
	}
	if store.AdmixFreqs == nil {
		store.AdmixFreqs = make([][]float64, store.N)
		for i := 0; i < store.N; i++ {
			store.AdmixFreqs[i] = make([]float64, store.K)
		}
	}

	for k := 0; k < store.K; k++ {
		for l := 0; l < store.L; l++ {
			sum := 0.0
			row := store.AlleleFreqs[k][l]
			for j := 1; j < len(row); j++ {
				row[j] = src.Gamma(store.AlleleCounts[k][l][j] + lambda)
				sum += row[j]
			}
			for j := 1; j < len(row); j++ {
				row[j] /= sum
			}
		}
	}

	for i := 0; i < store.N; i++ {
		sum := 0.0
		row := store.AdmixFreqs[i]
		for k := 0; k < store.K; k++ {
			row[k] = src.Gamma(store.AdmixCounts[i][k] + store.Alpha)
			sum += row[k]
		}
		for k := 0; k < store.K; k++ {
			row[k] /= sum
		}
	}
}

// LogLikeJoint computes the joint likelihood given the frequency draws in
// store, over all non-missing observations.
func LogLikeJoint(store *sstat.Store, idx *geno.GeneIndex, ds *geno.Dataset) float64 {
	total := 0.0
	for i := 0; i < ds.N; i++ {
		for l := 0; l < ds.L; l++ {
			for p := 0; p < ds.Ploidy[i]; p++ {
				a := ds.Data[i][l][p]
				if a == 0 {
					continue
				}
				sum := 0.0
				for k := 0; k < store.K; k++ {
					sum += store.AdmixFreqs[i][k] * store.AlleleFreqs[k][l][a]
				}
				total += math.Log(sum)
			}
		}
	}
	return total
}

// AccumulateQ folds the current LogQnew into LogQaccum in log-space, for
// every gene copy. It should be called once per recorded (post-burn-in)
// iteration, after label alignment.
func AccumulateQ(store *sstat.Store) {
	for g := range store.LogQaccum {
		for k := range store.LogQaccum[g] {
			store.LogQaccum[g][k] = rng.LogSum(store.LogQaccum[g][k], store.LogQnew[g][k])
		}
	}
}

// MeanQGene returns the final per-gene-copy mean Q matrix,
// exp(logQaccum - log(samples)).
func MeanQGene(store *sstat.Store, samples int) [][]float64 {
	logSamples := math.Log(float64(samples))
	out := make([][]float64, len(store.LogQaccum))
	for g := range store.LogQaccum {
		out[g] = make([]float64, store.K)
		for k := 0; k < store.K; k++ {
			out[g][k] = math.Exp(store.LogQaccum[g][k] - logSamples)
		}
	}
	return out
}

// MeanQIndividual averages gene-copy mean-Q rows over each individual's
// ploidy[i]*L gene copies.
func MeanQIndividual(meanQGene [][]float64, ds *geno.Dataset, idx *geno.GeneIndex, k int) [][]float64 {
	out := make([][]float64, ds.N)
	for i := 0; i < ds.N; i++ {
		out[i] = make([]float64, k)
		n := ds.Ploidy[i] * ds.L
		start := idx.IndividualStart(i)
		for g := start; g < start+n; g++ {
			for kk := 0; kk < k; kk++ {
				out[i][kk] += meanQGene[g][kk]
			}
		}
		for kk := 0; kk < k; kk++ {
			out[i][kk] /= float64(n)
		}
	}
	return out
}

// MeanQPopulation averages individual mean-Q rows within each declared
// population, weighted equally by individual (i.e. a simple within-group
// mean over the individuals assigned to that population).
func MeanQPopulation(meanQInd [][]float64, ds *geno.Dataset, k int) [][]float64 {
	out := make([][]float64, len(ds.UniquePops))
	counts := make([]int, len(ds.UniquePops))
	for p := range out {
		out[p] = make([]float64, k)
	}
	for i, pop := range ds.PopIndex {
		counts[pop]++
		for kk := 0; kk < k; kk++ {
			out[pop][kk] += meanQInd[i][kk]
		}
	}
	for p := range out {
		if counts[p] == 0 {
			continue
		}
		for kk := 0; kk < k; kk++ {
			out[p][kk] /= float64(counts[p])
		}
	}
	return out
}
