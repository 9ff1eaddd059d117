// Package geno models the raw multilocus genotype input to an admixture
// chain: per-individual ploidy, per-locus allele cardinality, the ragged
// allele observations themselves, and the canonical gene-copy order the
// rest of this module indexes everything by.
package geno

import "fmt"

// Dataset holds the fixed, read-only input to a chain. A Dataset is built
// once by the (out-of-scope) data loader and then shared, read-only, by
// every chain that runs against it.
type Dataset struct {
	N int // number of individuals
	L int // number of loci

	Ploidy []int // per-individual ploidy, length N
	J      []int // per-locus allele cardinality, length L

	// Data[i][l][p] is an allele observation in 0..J[l], 0 meaning
	// missing. Data[i][l] has length Ploidy[i].
	Data [][][]int

	PopIndex   []int    // per-individual population index into UniquePops
	UniquePops []string // declared population labels
}

// Validate checks the structural preconditions this package is responsible
// for: positive N and L, Ploidy and J of lengths N and L, positive ploidy
// and per-locus allele cardinality, and a Data array whose shape matches N,
// L and each individual's ploidy. Allele values are not checked against
// J[l]; that is the external data loader's responsibility, and the sampler
// assumes it once Validate passes.
func (d *Dataset) Validate() error {
	if d.N <= 0 {
		return fmt.Errorf("geno: N must be positive, got %d", d.N)
	}
	if d.L <= 0 {
		return fmt.Errorf("geno: L must be positive, got %d", d.L)
	}
	if len(d.Ploidy) != d.N {
		return fmt.Errorf("geno: len(Ploidy)=%d does not match N=%d", len(d.Ploidy), d.N)
	}
	if len(d.J) != d.L {
		return fmt.Errorf("geno: len(J)=%d does not match L=%d", len(d.J), d.L)
	}
	for i, p := range d.Ploidy {
		if p <= 0 {
			return fmt.Errorf("geno: ploidy of individual %d must be positive, got %d", i, p)
		}
	}
	for l, j := range d.J {
		if j <= 0 {
			return fmt.Errorf("geno: J[%d] must be positive, got %d", l, j)
		}
	}
	if len(d.Data) != d.N {
		return fmt.Errorf("geno: len(Data)=%d does not match N=%d", len(d.Data), d.N)
	}
	for i := range d.Data {
		if len(d.Data[i]) != d.L {
			return fmt.Errorf("geno: individual %d has %d loci, want %d", i, len(d.Data[i]), d.L)
		}
		for l := range d.Data[i] {
			if len(d.Data[i][l]) != d.Ploidy[i] {
				return fmt.Errorf("geno: individual %d locus %d has %d gene copies, want ploidy %d",
					i, l, len(d.Data[i][l]), d.Ploidy[i])
			}
		}
	}
	return nil
}

// GeneCopies returns G, the total number of gene copies (sum over
// individuals of ploidy*L).
func (d *Dataset) GeneCopies() int {
	g := 0
	for _, p := range d.Ploidy {
		g += p * d.L
	}
	return g
}

// Locus identifies a single gene copy by its (individual, locus, ploidy
// slot) coordinates.
type Locus struct {
	Ind, L, P int
}

// GeneIndex is the canonical linear order over gene copies: individuals in
// order, then loci in order, then ploidy slots in order. It is built once
// per dataset and never recomputed with nested loop counters, per this
// module's design note on desynchronized index bugs.
type GeneIndex struct {
	coords  []Locus // coords[g] -> (i, l, p)
	indBase []int   // indBase[i] is the first g belonging to individual i
}

// NewGeneIndex builds the canonical gene-copy index for a dataset. The
// dataset is assumed to have already passed Validate.
func NewGeneIndex(d *Dataset) *GeneIndex {
	g := d.GeneCopies()
	idx := &GeneIndex{
		coords:  make([]Locus, 0, g),
		indBase: make([]int, d.N),
	}
	for i := 0; i < d.N; i++ {
		idx.indBase[i] = len(idx.coords)
		for l := 0; l < d.L; l++ {
			for p := 0; p < d.Ploidy[i]; p++ {
				idx.coords = append(idx.coords, Locus{Ind: i, L: l, P: p})
			}
		}
	}
	return idx
}

// Len returns G, the number of gene copies indexed.
func (idx *GeneIndex) Len() int {
	return len(idx.coords)
}

// At returns the (individual, locus, ploidy-slot) coordinates of gene copy g.
func (idx *GeneIndex) At(g int) Locus {
	return idx.coords[g]
}

// IndividualStart returns the first gene-copy index belonging to individual i.
func (idx *GeneIndex) IndividualStart(i int) int {
	return idx.indBase[i]
}

// Allele returns the observed allele at gene copy g (0 means missing).
func (idx *GeneIndex) Allele(d *Dataset, g int) int {
	c := idx.coords[g]
	return d.Data[c.Ind][c.L][c.P]
}
