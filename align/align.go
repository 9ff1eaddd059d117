// Package align implements the Stephens (2000) online label-switching
// correction: each iteration's Q-matrix is permuted to best match a
// running reference before it is accumulated, via a Hungarian minimum-cost
// assignment on a K*K cost matrix built from the current and running log-Q
// rows.
package align

import (
	"github.com/op/go-logging"

	"bitbucket.org/popgen/admixture/hungarian"
	"bitbucket.org/popgen/admixture/rng"
	"bitbucket.org/popgen/admixture/sstat"
)

var log = logging.MustGetLogger("align")

// Align builds the Stephens cost matrix from store's current Qnew/LogQnew
// against the running LogQrunning reference, solves for the minimum-cost
// deme relabeling, and — if that relabeling is not the identity — permutes
// group, the count tensors, and LogQnew accordingly. It then folds the
// (possibly just-permuted) LogQnew into LogQrunning in log-space. It
// returns the permutation applied (identity if no relabeling occurred).
func Align(store *sstat.Store) ([]int, error) {
	k := store.K
	cost := make([][]float64, k)
	for k1 := 0; k1 < k; k1++ {
		cost[k1] = make([]float64, k)
		for k2 := 0; k2 < k; k2++ {
			sum := 0.0
			for g := range store.Qnew {
				sum += store.Qnew[g][k1] * (store.LogQnew[g][k1] - store.LogQrunning[g][k2])
			}
			cost[k1][k2] = sum
		}
	}

	perm, err := hungarian.Solve(cost)
	if err != nil {
		return nil, err
	}

	if !isIdentity(perm) {
		applyPermutation(store, perm)
		log.Debugf("label alignment applied non-identity permutation: %v", perm)
	}

	for g := range store.LogQrunning {
		for kk := 0; kk < k; kk++ {
			store.LogQrunning[g][kk] = rng.LogSum(store.LogQrunning[g][kk], store.LogQnew[g][kk])
		}
	}

	return perm, nil
}

func isIdentity(perm []int) bool {
	for i, v := range perm {
		if i != v {
			return false
		}
	}
	return true
}

// applyPermutation relabels every deme-indexed piece of state by perm,
// where perm[k] is the new label for old deme k. order is perm's inverse:
// order[perm[k]] = k, used to pull old rows into their new positions.
func applyPermutation(store *sstat.Store, perm []int) {
	k := store.K
	order := make([]int, k)
	for oldK, newK := range perm {
		order[newK] = oldK
	}

	for g := range store.Group {
		store.Group[g] = perm[store.Group[g]]
	}

	oldAlleleCounts := store.AlleleCounts
	oldAlleleCountsTotal := store.AlleleCountsTotal
	newAlleleCounts := make([][][]float64, k)
	newAlleleCountsTotal := make([][]float64, k)
	for newK := 0; newK < k; newK++ {
		newAlleleCounts[newK] = oldAlleleCounts[order[newK]]
		newAlleleCountsTotal[newK] = oldAlleleCountsTotal[order[newK]]
	}
	store.AlleleCounts = newAlleleCounts
	store.AlleleCountsTotal = newAlleleCountsTotal

	for i := range store.AdmixCounts {
		old := store.AdmixCounts[i]
		updated := make([]float64, k)
		for newK := 0; newK < k; newK++ {
			updated[newK] = old[order[newK]]
		}
		store.AdmixCounts[i] = updated
	}

	for g := range store.LogQnew {
		old := store.LogQnew[g]
		updated := make([]float64, k)
		for newK := 0; newK < k; newK++ {
			updated[newK] = old[order[newK]]
		}
		store.LogQnew[g] = updated
	}
}
