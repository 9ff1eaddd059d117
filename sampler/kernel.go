// Package sampler implements the two Gibbs/Metropolis moves that touch
// every gene copy or the concentration parameter on every sweep: the
// collapsed per-gene-copy deme resample and the Metropolis update of the
// admixture concentration alpha. It mutates a *sstat.Store in place
// through its Detach/Attach API so the count-tensor invariants stay
// localized in sstat, not duplicated here.
package sampler

import (
	"math"

	"github.com/op/go-logging"

	"bitbucket.org/popgen/admixture/geno"
	"bitbucket.org/popgen/admixture/rng"
	"bitbucket.org/popgen/admixture/sstat"
)

var log = logging.MustGetLogger("sampler")

// Kernel bundles the fixed inputs the sampler's inner loop needs on every
// call: the dataset, its gene index, and the hyperparameters that do not
// change within a sweep. Beta is the thermodynamic-integration
// inverse-temperature applied to the allele-frequency factor.
type Kernel struct {
	Dataset *geno.Dataset
	Index   *geno.GeneIndex
	Lambda  float64
	Beta    float64
}

// GroupUpdate resamples every gene copy's deme assignment in canonical
// order, mutating store in place. w is a scratch buffer of length K
// reused across gene copies to avoid per-copy allocation.
func (k *Kernel) GroupUpdate(store *sstat.Store, src *rng.Source) {
	w := make([]float64, store.K)
	g := k.Index.Len()
	for gi := 0; gi < g; gi++ {
		store.Detach(gi)

		loc := k.Index.At(gi)
		a := k.Dataset.Data[loc.Ind][loc.L][loc.P]

		sum := 0.0
		if a == 0 {
			for kk := 0; kk < store.K; kk++ {
				wk := store.AdmixCounts[loc.Ind][kk] + store.Alpha
				w[kk] = wk
				sum += wk
			}
		} else {
			jl := float64(k.Dataset.J[loc.L])
			for kk := 0; kk < store.K; kk++ {
				pAllele := (store.AlleleCounts[kk][loc.L][a] + k.Lambda) /
					(store.AlleleCountsTotal[kk][loc.L] + jl*k.Lambda)
				wk := (store.AdmixCounts[loc.Ind][kk] + store.Alpha) * math.Pow(pAllele, k.Beta)
				w[kk] = wk
				sum += wk
			}
		}

		newK := src.CategoricalSum(w, sum)
		store.Attach(gi, newK)
	}
}

// AlphaUpdate performs one Metropolis step on the admixture concentration,
// proposing alpha' = alpha + N(0, propSD^2), reflecting into (0,10], and
// accepting with the Dirichlet-multinomial marginal ratio over admixture
// assignments. It returns whether the proposal was accepted, for callers
// that want to track acceptance rates.
func (k *Kernel) AlphaUpdate(store *sstat.Store, src *rng.Source, propSD float64) bool {
	cur := store.Alpha
	prop := reflectAlpha(cur + src.Normal()*propSD)

	curLP := alphaLogMarginal(store, cur)
	propLP := alphaLogMarginal(store, prop)

	logRatio := propLP - curLP
	accept := logRatio >= 0 || src.Uniform() < math.Exp(logRatio)
	if accept {
		store.Alpha = prop
		log.Debugf("alpha update: %.6f -> %.6f accepted (logRatio=%.4f)", cur, prop, logRatio)
	} else {
		log.Debugf("alpha update: %.6f -> %.6f rejected (logRatio=%.4f)", cur, prop, logRatio)
	}
	return accept
}

// reflectAlpha folds a proposed value back into (0,10] by the two-step
// wrap-then-fold procedure: wrap into [-10,20] by repeated +/-20, then
// fold the [-10,0) and (10,20] tails back onto [0,10] by reflection. A
// result of exactly 0 is replaced by 1e-300 since alpha must be strictly
// positive. This generalizes the reflecting-boundary idiom this codebase
// uses for bounded continuous parameters.
func reflectAlpha(a float64) float64 {
	for a < -10 || a > 20 {
		if a < -10 {
			a += 20
		} else {
			a -= 20
		}
	}
	switch {
	case a < 0:
		a = -a
	case a > 10:
		a = 20 - a
	}
	if a == 0 {
		a = 1e-300
	}
	return a
}

// alphaLogMarginal computes the Dirichlet-multinomial log marginal over
// admixture assignments only, for a candidate alpha value, holding the
// current admixCounts fixed.
func alphaLogMarginal(store *sstat.Store, alpha float64) float64 {
	kAlpha := float64(store.K) * alpha
	total := 0.0
	for i := 0; i < store.N; i++ {
		total += rng.LogGamma(kAlpha) - rng.LogGamma(store.AdmixCountsTotal[i]+kAlpha)
		for kk := 0; kk < store.K; kk++ {
			total += rng.LogGamma(store.AdmixCounts[i][kk]+alpha) - rng.LogGamma(alpha)
		}
	}
	return total
}

// ProduceQMatrix computes the beta=1 conditional deme probability for
// every gene copy and stores the normalized vector and its log in
// store.Qnew / store.LogQnew. This is the quantity the label-alignment
// module treats as the iteration's Q; it never mutates the count
// tensors.
func (k *Kernel) ProduceQMatrix(store *sstat.Store) {
	w := make([]float64, store.K)
	g := k.Index.Len()
	for gi := 0; gi < g; gi++ {
		loc := k.Index.At(gi)
		a := k.Dataset.Data[loc.Ind][loc.L][loc.P]

		sum := 0.0
		if a == 0 {
			for kk := 0; kk < store.K; kk++ {
				wk := store.AdmixCounts[loc.Ind][kk] + store.Alpha
				w[kk] = wk
				sum += wk
			}
		} else {
			jl := float64(k.Dataset.J[loc.L])
			for kk := 0; kk < store.K; kk++ {
				pAllele := (store.AlleleCounts[kk][loc.L][a] + k.Lambda) /
					(store.AlleleCountsTotal[kk][loc.L] + jl*k.Lambda)
				wk := (store.AdmixCounts[loc.Ind][kk] + store.Alpha) * pAllele
				w[kk] = wk
				sum += wk
			}
		}

		logSum := math.Log(sum)
		for kk := 0; kk < store.K; kk++ {
			store.Qnew[gi][kk] = w[kk] / sum
			store.LogQnew[gi][kk] = math.Log(w[kk]) - logSum
		}
	}
}
