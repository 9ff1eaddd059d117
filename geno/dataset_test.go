package geno

import "testing"

func validDataset() *Dataset {
	return &Dataset{
		N:      2,
		L:      2,
		Ploidy: []int{2, 3},
		J:      []int{2, 4},
		Data: [][][]int{
			{{1, 2}, {0, 3}},
			{{1, 1, 2}, {4, 4, 0}},
		},
	}
}

func TestValidateAcceptsWellFormedDataset(t *testing.T) {
	if err := validDataset().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsZeroN(t *testing.T) {
	d := validDataset()
	d.N = 0
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for N=0")
	}
}

func TestValidateRejectsMismatchedPloidyLength(t *testing.T) {
	d := validDataset()
	d.Ploidy = []int{2}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for len(Ploidy) != N")
	}
}

func TestValidateRejectsNonPositivePloidy(t *testing.T) {
	d := validDataset()
	d.Ploidy[0] = 0
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for non-positive ploidy")
	}
}

func TestValidateRejectsNonPositiveJ(t *testing.T) {
	d := validDataset()
	d.J[1] = -1
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for non-positive J")
	}
}

func TestValidateRejectsRaggedDataShape(t *testing.T) {
	d := validDataset()
	d.Data[1][0] = []int{1, 1} // individual 1 has ploidy 3 but only 2 gene copies here
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for ragged gene-copy count")
	}
}

func TestGeneCopiesSumsPloidyTimesL(t *testing.T) {
	d := validDataset()
	// N=2, L=2, ploidy 2 and 3: 2*2 + 3*2 = 10
	if got := d.GeneCopies(); got != 10 {
		t.Fatalf("GeneCopies() = %d, want 10", got)
	}
}

func TestNewGeneIndexCanonicalOrder(t *testing.T) {
	d := validDataset()
	idx := NewGeneIndex(d)
	if idx.Len() != d.GeneCopies() {
		t.Fatalf("Len() = %d, want %d", idx.Len(), d.GeneCopies())
	}

	if idx.IndividualStart(0) != 0 {
		t.Fatalf("IndividualStart(0) = %d, want 0", idx.IndividualStart(0))
	}
	if idx.IndividualStart(1) != 4 {
		t.Fatalf("IndividualStart(1) = %d, want 4 (individual 0 has ploidy 2 * L 2 = 4 gene copies)", idx.IndividualStart(1))
	}

	first := idx.At(0)
	if first != (Locus{Ind: 0, L: 0, P: 0}) {
		t.Fatalf("At(0) = %+v, want {0 0 0}", first)
	}
	last := idx.At(idx.Len() - 1)
	if last != (Locus{Ind: 1, L: 1, P: 2}) {
		t.Fatalf("At(last) = %+v, want {1 1 2}", last)
	}
}

func TestAlleleReturnsObservation(t *testing.T) {
	d := validDataset()
	idx := NewGeneIndex(d)
	g := idx.IndividualStart(1) + 3 // individual 1, locus 1, ploidy slot 0
	if a := idx.Allele(d, g); a != 4 {
		t.Fatalf("Allele at individual 1 locus 1 slot 0 = %d, want 4", a)
	}
}
