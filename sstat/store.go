// Package sstat owns the sufficient statistics a chain mutates every
// sweep: the grouping vector, the co-maintained allele/admixture count
// tensors, the running and accumulated Q matrices in log space, and the
// admixture concentration. Mutation is exposed through a narrow
// Detach/Attach pair so the invariants tying the count tensors together
// (I1-I3 in the data model) are enforced in one place instead of at every
// call site, mirroring this codebase's own design note about isolating
// invariant-sensitive mutation behind a small API.
package sstat

import (
	"fmt"
	"math"

	"bitbucket.org/popgen/admixture/geno"
)

// Store holds all mutable per-chain state. One Store is owned exclusively
// by one chain for its lifetime; nothing in this package is safe for
// concurrent use.
type Store struct {
	K int
	N int
	L int

	Group []int // Group[g] in 0..K-1, canonical gene-copy order

	AlleleCounts      [][][]float64 // [k][l][j]
	AlleleCountsTotal [][]float64   // [k][l]
	AdmixCounts       [][]float64   // [i][k]
	AdmixCountsTotal  []float64     // [i]

	AlleleFreqs [][][]float64 // [k][l][j], optional posterior draw
	AdmixFreqs  [][]float64   // [i][k], optional posterior draw

	LogQrunning [][]float64 // [g][k]
	LogQnew     [][]float64 // [g][k]
	Qnew        [][]float64 // [g][k]
	LogQaccum   [][]float64 // [g][k]

	Alpha float64

	// logTable[c][j] = log(c + j*lambda) for small non-negative integer
	// counts c and allele-cardinality multiples j. Log reads it when
	// UseLogTable is set, in place of a math.Log call; the sampler kernel
	// computes its weights by direct division and does not call Log.
	UseLogTable bool
	logTable    [][]float64
	lambda      float64

	ds  *geno.Dataset
	idx *geno.GeneIndex
}

const logTableMaxCount = 1000

// New allocates a Store sized for dataset ds, gene index idx, and K
// demes. It does not populate the tensors — call Reset for that.
func New(ds *geno.Dataset, idx *geno.GeneIndex, k int, lambda float64, useLogTable bool) *Store {
	g := idx.Len()
	s := &Store{
		K:           k,
		N:           ds.N,
		L:           ds.L,
		Group:       make([]int, g),
		UseLogTable: useLogTable,
		lambda:      lambda,
		ds:          ds,
		idx:         idx,
	}

	s.AlleleCounts = make([][][]float64, k)
	s.AlleleCountsTotal = make([][]float64, k)
	for kk := 0; kk < k; kk++ {
		s.AlleleCounts[kk] = make([][]float64, ds.L)
		s.AlleleCountsTotal[kk] = make([]float64, ds.L)
		for l := 0; l < ds.L; l++ {
			s.AlleleCounts[kk][l] = make([]float64, ds.J[l]+1) // alleles are 1..J[l]
		}
	}

	s.AdmixCounts = make([][]float64, ds.N)
	s.AdmixCountsTotal = make([]float64, ds.N)
	for i := 0; i < ds.N; i++ {
		s.AdmixCounts[i] = make([]float64, k)
	}

	s.LogQrunning = make([][]float64, g)
	s.LogQnew = make([][]float64, g)
	s.Qnew = make([][]float64, g)
	s.LogQaccum = make([][]float64, g)
	for gg := 0; gg < g; gg++ {
		s.LogQrunning[gg] = make([]float64, k)
		s.LogQnew[gg] = make([]float64, k)
		s.Qnew[gg] = make([]float64, k)
		s.LogQaccum[gg] = make([]float64, k)
	}

	if useLogTable {
		jmax := 0
		for _, j := range ds.J {
			if j > jmax {
				jmax = j
			}
		}
		s.logTable = make([][]float64, logTableMaxCount)
		for c := 0; c < logTableMaxCount; c++ {
			s.logTable[c] = make([]float64, jmax+1)
			for j := 0; j <= jmax; j++ {
				s.logTable[c][j] = math.Log(float64(c) + float64(j)*lambda)
			}
		}
	}

	return s
}

// Log returns log(count + j*lambda), using the precomputed table when it
// covers the arguments and UseLogTable is set, falling back to math.Log
// otherwise. count must be non-negative.
func (s *Store) Log(count float64, j int) float64 {
	if s.UseLogTable && count >= 0 && count < logTableMaxCount && float64(int(count)) == count {
		return s.logTable[int(count)][j]
	}
	return math.Log(count + float64(j)*s.lambda)
}

// Reset zeros and re-randomizes all statistics: each Group[g] is drawn by
// calling drawGroup, the count tensors are rebuilt from Group and the dataset in a
// single consistent pass, and the accumulators are cleared. When
// resetQrunning is true, LogQrunning is reset to a uniform reference
// (log(1/K) in every cell); LogQaccum is always cleared.
func (s *Store) Reset(drawGroup func() int, resetQrunning bool) {
	g := s.idx.Len()

	for kk := 0; kk < s.K; kk++ {
		for l := 0; l < s.L; l++ {
			for j := range s.AlleleCounts[kk][l] {
				s.AlleleCounts[kk][l][j] = 0
			}
			s.AlleleCountsTotal[kk][l] = 0
		}
	}
	for i := 0; i < s.N; i++ {
		for kk := 0; kk < s.K; kk++ {
			s.AdmixCounts[i][kk] = 0
		}
		s.AdmixCountsTotal[i] = 0
	}

	for gg := 0; gg < g; gg++ {
		s.Group[gg] = drawGroup()
	}

	for gg := 0; gg < g; gg++ {
		loc := s.idx.At(gg)
		a := s.ds.Data[loc.Ind][loc.L][loc.P]
		if a == 0 {
			continue
		}
		k := s.Group[gg]
		s.AlleleCounts[k][loc.L][a]++
		s.AlleleCountsTotal[k][loc.L]++
		s.AdmixCounts[loc.Ind][k]++
		s.AdmixCountsTotal[loc.Ind]++
	}

	logUniform := -math.Log(float64(s.K))
	for gg := 0; gg < g; gg++ {
		for kk := 0; kk < s.K; kk++ {
			if resetQrunning {
				s.LogQrunning[gg][kk] = logUniform
			}
			s.LogQaccum[gg][kk] = math.Inf(-1)
			s.LogQnew[gg][kk] = math.Inf(-1)
			s.Qnew[gg][kk] = 0
		}
	}
}

// Detach removes gene copy g's current assignment from the count tensors,
// leaving Group[g] unchanged (the caller records the old label itself if
// needed before calling Detach). It is a no-op for missing observations,
// per invariant I3's decrement-then-increment discipline.
func (s *Store) Detach(g int) {
	loc := s.idx.At(g)
	a := s.ds.Data[loc.Ind][loc.L][loc.P]
	if a == 0 {
		return
	}
	k := s.Group[g]
	s.AlleleCounts[k][loc.L][a]--
	s.AlleleCountsTotal[k][loc.L]--
	s.AdmixCounts[loc.Ind][k]--
	s.AdmixCountsTotal[loc.Ind]--
}

// Attach assigns gene copy g to deme k, setting Group[g] and incrementing
// the count tensors. It is the paired inverse of Detach; a missing
// observation updates only Group.
func (s *Store) Attach(g, k int) {
	s.Group[g] = k
	loc := s.idx.At(g)
	a := s.ds.Data[loc.Ind][loc.L][loc.P]
	if a == 0 {
		return
	}
	s.AlleleCounts[k][loc.L][a]++
	s.AlleleCountsTotal[k][loc.L]++
	s.AdmixCounts[loc.Ind][k]++
	s.AdmixCountsTotal[loc.Ind]++
}

// CheckInvariants verifies I1-I2 hold, returning a non-nil error
// describing the first violation found. It is intended for tests, not
// the hot path.
func (s *Store) CheckInvariants() error {
	for k := 0; k < s.K; k++ {
		for l := 0; l < s.L; l++ {
			sum := 0.0
			for _, c := range s.AlleleCounts[k][l] {
				sum += c
			}
			if sum != s.AlleleCountsTotal[k][l] {
				return invariantError("I1", k, l, sum, s.AlleleCountsTotal[k][l])
			}
		}
	}
	for i := 0; i < s.N; i++ {
		sum := 0.0
		for _, c := range s.AdmixCounts[i] {
			sum += c
		}
		if sum != s.AdmixCountsTotal[i] {
			return invariantError("I2", i, -1, sum, s.AdmixCountsTotal[i])
		}
	}
	return nil
}

func invariantError(tag string, a, b int, got, want float64) error {
	if b < 0 {
		return fmt.Errorf("sstat: %s violated at index %d: got %v, want %v", tag, a, got, want)
	}
	return fmt.Errorf("sstat: %s violated at (%d,%d): got %v, want %v", tag, a, b, got, want)
}
