// Package hungarian solves the square assignment problem: given an n x n
// cost matrix, find the permutation of columns to rows that minimizes
// total cost. The alignment package uses this to solve the Stephens
// (2000) label-switching correction each sweep, matching the current
// sweep's clusters to the running reference's clusters at minimum
// cost. Nothing in the retrieved example pack or its dependency trees
// provides an assignment-problem solver, so this is implemented directly
// from the classical Kuhn-Munkres (Jonker-Volgenant style potentials)
// algorithm description.
package hungarian

import (
	"fmt"
	"math"
)

// Solve returns perm such that perm[row] = column, minimizing
// sum(cost[row][perm[row]]) over all permutations of an n x n cost
// matrix. It returns an error if cost is not square.
func Solve(cost [][]float64) ([]int, error) {
	n := len(cost)
	for i, row := range cost {
		if len(row) != n {
			return nil, fmt.Errorf("hungarian: cost matrix is not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}
	if n == 0 {
		return nil, nil
	}

	const inf = math.MaxFloat64 / 4

	// 1-indexed Jonker-Volgenant shortest-augmenting-path formulation:
	// u, v are row/column potentials; p[j] is the row currently matched
	// to column j (0 means unmatched); way[j] records the predecessor
	// column on the augmenting path used to reconstruct the match.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	perm := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			perm[p[j]-1] = j - 1
		}
	}
	return perm, nil
}

// Cost returns the total cost of the assignment perm under cost.
func Cost(cost [][]float64, perm []int) float64 {
	total := 0.0
	for row, col := range perm {
		total += cost[row][col]
	}
	return total
}
