/*

Admixgibbs runs a single admixture-model Gibbs sampler chain against a
JSON-encoded genotype dataset fixture. It is a thin demonstration
harness around the chain package, not a replacement for a real
genotype-file parser: the JSON fixture format it reads is this
repository's own minimal stand-in for that (out-of-scope) format.

The basic usage looks like this:

	admixgibbs --k 3 --data genotypes.json --out-likelihood like.csv --out-grouping grouping.csv

To see all the options run:

	admixgibbs --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/popgen/admixture/chain"
	"bitbucket.org/popgen/admixture/geno"
	"bitbucket.org/popgen/admixture/output"
)

var log = logging.MustGetLogger("admixgibbs")
var formatter = logging.MustStringFormatter(`%{time:15:04:05.000} %{level:.4s} %{message}`)

var (
	app = kingpin.New("admixgibbs", "Bayesian admixture-model Gibbs sampler").Version(version)

	k           = app.Flag("k", "number of ancestral demes").Required().Int()
	lambda      = app.Flag("lambda", "allele-frequency Dirichlet prior pseudocount").Default("1.0").Float64()
	alpha0      = app.Flag("alpha", "initial admixture concentration").Default("1.0").Float64()
	alphaPropSD = app.Flag("alpha-prop-sd", "proposal standard deviation for the alpha Metropolis step").Default("0.3").Float64()
	fixAlpha    = app.Flag("fix-alpha", "hold alpha fixed instead of updating it by Metropolis").Bool()
	beta        = app.Flag("beta", "thermodynamic-integration inverse temperature").Default("1.0").Float64()
	burnin      = app.Flag("burnin", "number of burn-in iterations").Default("1000").Int()
	samples     = app.Flag("samples", "number of recorded post-burn-in iterations").Default("1000").Int()
	thinning    = app.Flag("thinning", "record every N-th post-burn-in iteration").Default("1").Int()
	fixLabels   = app.Flag("fix-labels", "run Stephens label alignment and accumulate Q matrices").Default("true").Bool()
	drawFreqs   = app.Flag("draw-freqs", "draw posterior allele/admixture frequencies and the joint likelihood").Bool()
	seed        = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()

	dataFileName = app.Flag("data", "path to a JSON dataset fixture").Required().ExistingFile()

	outLikelihoodF = app.Flag("out-likelihood", "write per-iteration likelihood trace to this CSV file").String()
	outGroupingF   = app.Flag("out-grouping", "write the per-iteration posterior grouping to this CSV file").String()

	logLevel = app.Flag("loglevel", "set loglevel [CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG]").Default("INFO").String()
)

var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// datasetFixture mirrors geno.Dataset's fields in the minimal JSON format
// this CLI accepts. N and L are derived from the shape of the arrays
// rather than required explicitly.
type datasetFixture struct {
	Ploidy     []int     `json:"ploidy"`
	J          []int     `json:"j"`
	Data       [][][]int `json:"data"`
	PopIndex   []int     `json:"pop_index"`
	UniquePops []string  `json:"unique_pops"`
}

func loadDataset(path string) (*geno.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer f.Close()

	var fx datasetFixture
	if err := json.NewDecoder(f).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decoding dataset JSON: %w", err)
	}

	ds := &geno.Dataset{
		N:          len(fx.Data),
		L:          len(fx.J),
		Ploidy:     fx.Ploidy,
		J:          fx.J,
		Data:       fx.Data,
		PopIndex:   fx.PopIndex,
		UniquePops: fx.UniquePops,
	}
	return ds, nil
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logging.SetFormatter(formatter)
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "admixgibbs")
	logging.SetLevel(level, "chain")
	logging.SetLevel(level, "sampler")
	logging.SetLevel(level, "align")

	log.Info(version)
	log.Info("Command line:", os.Args)

	effectiveSeed := *seed
	if effectiveSeed == -1 {
		effectiveSeed = time.Now().UnixNano()
		log.Debug("random seed from time")
	}
	log.Infof("random seed=%v", effectiveSeed)

	ds, err := loadDataset(*dataFileName)
	if err != nil {
		log.Fatal(err)
	}

	cfg := chain.Config{
		K:                       *k,
		Lambda:                  *lambda,
		Alpha0:                  *alpha0,
		AlphaPropSD:             *alphaPropSD,
		FixAlpha:                *fixAlpha,
		Beta:                    *beta,
		Burnin:                  *burnin,
		Samples:                 *samples,
		Thinning:                *thinning,
		FixLabels:               *fixLabels,
		DrawFreqs:               *drawFreqs,
		OutputLikelihood:        *outLikelihoodF != "",
		OutputPosteriorGrouping: *outGroupingF != "",
		OutputQMatrixGene:       *fixLabels,
		OutputQMatrixInd:        *fixLabels,
		OutputQMatrixPop:        *fixLabels,
		Seed:                    effectiveSeed,
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	var likeWriter chain.LikelihoodWriter
	if *outLikelihoodF != "" {
		f, err := os.Create(*outLikelihoodF)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w, err := output.NewLikelihoodWriter(f)
		if err != nil {
			log.Fatal(err)
		}
		likeWriter = w
	}

	var groupWriter chain.GroupingWriter
	if *outGroupingF != "" {
		f, err := os.Create(*outGroupingF)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w, err := output.NewGroupingWriter(f, geno.NewGeneIndex(ds).Len())
		if err != nil {
			log.Fatal(err)
		}
		groupWriter = w
	}

	c, err := chain.NewChain(cfg, ds, likeWriter, groupWriter)
	if err != nil {
		log.Fatal(err)
	}

	result, err := c.Run()
	if err != nil {
		log.Fatal(err)
	}

	log.Infof("harmonic-mean log evidence: %.4f", result.HarmonicMeanLogEvidence)
}
