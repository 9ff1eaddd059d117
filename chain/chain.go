// Package chain orchestrates a single admixture chain end to end: reset,
// burn-in, thinning, sampling, label alignment, and final summary
// computation, following the driver loop in this module's design
// document. It also hosts RunParallel, which runs a caller-supplied set
// of already-configured chains concurrently, one goroutine each, sharing
// nothing mutable between them.
package chain

import (
	"fmt"
	"sync"

	"github.com/op/go-logging"

	"bitbucket.org/popgen/admixture/accumulate"
	"bitbucket.org/popgen/admixture/align"
	"bitbucket.org/popgen/admixture/geno"
	"bitbucket.org/popgen/admixture/rng"
	"bitbucket.org/popgen/admixture/sampler"
	"bitbucket.org/popgen/admixture/sstat"
)

var log = logging.MustGetLogger("chain")

// LikelihoodWriter is the capability a chain writes its per-iteration
// likelihood trace through, satisfied by *output.LikelihoodWriter.
type LikelihoodWriter interface {
	WriteRow(k, mainRep, iteration int, logLikeGroup, logLikeJoint, alpha float64) error
}

// GroupingWriter is the capability a chain writes its per-iteration
// posterior grouping through, satisfied by *output.GroupingWriter.
type GroupingWriter interface {
	WriteRow(k, mainRep, iteration int, group []int) error
}

// Result summarizes a finished chain's output: the final mean Q matrices
// at each level, the harmonic-mean evidence estimate, and the recorded
// logLikeGroup trace (for an optional trace plot).
type Result struct {
	MeanQGene               [][]float64
	MeanQIndividual         [][]float64
	MeanQPopulation         [][]float64
	HarmonicMeanLogEvidence float64
	LogLikeTrace            []float64
}

// Chain bundles one chain's fixed configuration, its dataset, and the
// capability objects it writes output through. A Chain owns its sstat.Store
// and rng.Source exclusively for its lifetime.
type Chain struct {
	Config  Config
	Dataset *geno.Dataset

	LikelihoodOut LikelihoodWriter
	GroupingOut   GroupingWriter

	idx    *geno.GeneIndex
	store  *sstat.Store
	src    *rng.Source
	kernel *sampler.Kernel
}

// NewChain validates cfg and ds, then constructs a Chain ready to Run.
func NewChain(cfg Config, ds *geno.Dataset, likeOut LikelihoodWriter, groupOut GroupingWriter) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, configError("invalid dataset: %v", err)
	}

	idx := geno.NewGeneIndex(ds)
	store := sstat.New(ds, idx, cfg.K, cfg.Lambda, cfg.UseLogTable)
	store.Alpha = cfg.Alpha0
	src := rng.New(cfg.Seed)

	return &Chain{
		Config:        cfg,
		Dataset:       ds,
		LikelihoodOut: likeOut,
		GroupingOut:   groupOut,
		idx:           idx,
		store:         store,
		src:           src,
		kernel: &sampler.Kernel{
			Dataset: ds,
			Index:   idx,
			Lambda:  cfg.Lambda,
			Beta:    cfg.Beta,
		},
	}, nil
}

// Run executes the full driver loop (§4.7) to completion and returns the
// chain's summary Result. A panic raised during the run (such as a
// categorical draw over a non-positive weight sum) aborts only this chain
// and is returned as a *NumericError.
func (c *Chain) Run() (res *Result, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			res, runErr = nil, numericError("chain aborted: %v", r)
		}
	}()

	cfg := c.Config
	store := c.store

	store.Reset(func() int { return int(c.src.Uniform() * float64(cfg.K)) }, true)

	acc := accumulate.New()
	trace := make([]float64, 0, cfg.Samples)

	thinSwitch := 1
	totalIterations := cfg.Burnin + cfg.Samples

	for rep := 0; rep < totalIterations; rep++ {
		for t := 0; t < thinSwitch; t++ {
			c.kernel.GroupUpdate(store, c.src)
			if !cfg.FixAlpha {
				c.kernel.AlphaUpdate(store, c.src, cfg.AlphaPropSD)
			}
		}
		if rep == cfg.Burnin {
			thinSwitch = cfg.Thinning
		}

		recorded := rep >= cfg.Burnin

		if cfg.FixLabels {
			c.kernel.ProduceQMatrix(store)
			if _, err := align.Align(store); err != nil {
				return nil, numericError("label alignment failed at iteration %d: %v", rep, err)
			}
			if recorded {
				accumulate.AccumulateQ(store)
			}
		}

		logLikeGroup := accumulate.LogLikeGroup(store, c.Dataset, cfg.Lambda)

		logLikeJoint := 0.0
		if cfg.DrawFreqs {
			accumulate.DrawFreqs(store, c.Dataset, cfg.Lambda, c.src)
			logLikeJoint = accumulate.LogLikeJoint(store, c.idx, c.Dataset)
		}

		if recorded {
			acc.Accumulate(logLikeGroup)
			trace = append(trace, logLikeGroup)
		}

		iterationCol := rep - cfg.Burnin + 1
		if c.LikelihoodOut != nil && cfg.OutputLikelihood {
			if err := c.LikelihoodOut.WriteRow(cfg.K, cfg.Replicate+1, iterationCol, logLikeGroup, logLikeJoint, store.Alpha); err != nil {
				return nil, err
			}
		}
		if c.GroupingOut != nil && cfg.OutputPosteriorGrouping {
			if err := c.GroupingOut.WriteRow(cfg.K, cfg.Replicate+1, iterationCol, store.Group); err != nil {
				return nil, err
			}
		}
	}

	result := &Result{
		HarmonicMeanLogEvidence: acc.HarmonicMeanEvidence(),
		LogLikeTrace:            trace,
	}

	if cfg.FixLabels && acc.Samples > 0 {
		var meanQGene [][]float64
		if cfg.OutputQMatrixGene || cfg.OutputQMatrixInd || cfg.OutputQMatrixPop {
			meanQGene = accumulate.MeanQGene(store, acc.Samples)
		}
		if cfg.OutputQMatrixGene {
			result.MeanQGene = meanQGene
		}
		var meanQInd [][]float64
		if cfg.OutputQMatrixInd || cfg.OutputQMatrixPop {
			meanQInd = accumulate.MeanQIndividual(meanQGene, c.Dataset, c.idx, cfg.K)
		}
		if cfg.OutputQMatrixInd {
			result.MeanQIndividual = meanQInd
		}
		if cfg.OutputQMatrixPop {
			result.MeanQPopulation = accumulate.MeanQPopulation(meanQInd, c.Dataset, cfg.K)
		}
	}

	log.Infof("chain finished: K=%d burnin=%d samples=%d harmonicMeanLogEvidence=%.4f",
		cfg.K, cfg.Burnin, cfg.Samples, result.HarmonicMeanLogEvidence)

	return result, nil
}

// RunParallel runs each of chains concurrently, one goroutine per chain,
// and returns a same-indexed slice of results and a same-indexed slice of
// errors (nil on success). It does not decide which chains to build —
// that sweep over K values and replicates remains the caller's job. A nil
// entry in chains (e.g. one that failed NewChain's validation) is treated
// as an already-failed chain: its slot gets a non-nil error without being
// run, and it does not affect any sibling chain's result.
func RunParallel(chains []*Chain) ([]*Result, []error) {
	results := make([]*Result, len(chains))
	errs := make([]error, len(chains))

	var wg sync.WaitGroup
	for i, c := range chains {
		if c == nil {
			errs[i] = fmt.Errorf("chain: RunParallel: chain at index %d is nil", i)
			continue
		}
		wg.Add(1)
		go func(i int, c *Chain) {
			defer wg.Done()
			res, err := c.Run()
			results[i] = res
			errs[i] = err
		}(i, c)
	}
	wg.Wait()

	return results, errs
}
