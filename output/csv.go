// Package output wraps the two per-iteration CSV streams a chain can
// emit — the likelihood trace and the posterior grouping — behind small
// capability types constructed by the caller and passed into chain.Chain,
// generalizing this codebase's existing bufio.Writer-based trajectory-file
// pattern to encoding/csv with a flush after every row so a crashed
// sibling chain never corrupts a reader mid-row.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// LikelihoodWriter emits one row per iteration: K, mainRep+1, the
// iteration index relative to burn-in, logLikeGroup, logLikeJoint, and
// the current alpha.
type LikelihoodWriter struct {
	w *csv.Writer
}

// NewLikelihoodWriter wraps dst, writing a header row naming the columns
// that will follow.
func NewLikelihoodWriter(dst io.Writer) (*LikelihoodWriter, error) {
	w := csv.NewWriter(dst)
	header := []string{"K", "mainRep", "iteration", "logLikeGroup", "logLikeJoint", "alpha"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("output: writing likelihood header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &LikelihoodWriter{w: w}, nil
}

// WriteRow writes one iteration's likelihood values and flushes
// immediately. k is the chain's K, mainRep the (1-based) outer-driver
// replicate index, iteration the value rep-burnin+1 from the driver
// loop.
func (lw *LikelihoodWriter) WriteRow(k, mainRep, iteration int, logLikeGroup, logLikeJoint, alpha float64) error {
	row := []string{
		strconv.Itoa(k),
		strconv.Itoa(mainRep),
		strconv.Itoa(iteration),
		strconv.FormatFloat(logLikeGroup, 'g', -1, 64),
		strconv.FormatFloat(logLikeJoint, 'g', -1, 64),
		strconv.FormatFloat(alpha, 'g', -1, 64),
	}
	if err := lw.w.Write(row); err != nil {
		return fmt.Errorf("output: writing likelihood row: %w", err)
	}
	lw.w.Flush()
	return lw.w.Error()
}

// GroupingWriter emits one row per iteration: K, mainRep+1, the iteration
// index relative to burn-in, then one column per gene copy in canonical
// order holding its 1-based deme label — the only place this module
// converts the in-memory 0-based group assignment to 1-based.
type GroupingWriter struct {
	w *csv.Writer
	g int
}

// NewGroupingWriter wraps dst, writing a header row sized for g gene
// copies.
func NewGroupingWriter(dst io.Writer, g int) (*GroupingWriter, error) {
	w := csv.NewWriter(dst)
	header := []string{"K", "mainRep", "iteration"}
	for i := 0; i < g; i++ {
		header = append(header, fmt.Sprintf("group_%d", i))
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("output: writing grouping header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &GroupingWriter{w: w, g: g}, nil
}

// WriteRow writes one iteration's full grouping vector, converting each
// entry from 0-based to 1-based, and flushes immediately.
func (gw *GroupingWriter) WriteRow(k, mainRep, iteration int, group []int) error {
	if len(group) != gw.g {
		return fmt.Errorf("output: grouping row has %d gene copies, want %d", len(group), gw.g)
	}
	row := make([]string, 0, 3+gw.g)
	row = append(row, strconv.Itoa(k), strconv.Itoa(mainRep), strconv.Itoa(iteration))
	for _, grp := range group {
		row = append(row, strconv.Itoa(grp+1))
	}
	if err := gw.w.Write(row); err != nil {
		return fmt.Errorf("output: writing grouping row: %w", err)
	}
	gw.w.Flush()
	return gw.w.Error()
}
