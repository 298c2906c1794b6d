// Package partition splits a patrol graph's vertices into territories for
// several agents.
//
// [Spectral] performs recursive spectral bisection. Vertices are weighted by
// a Gaussian kernel over their walking distances,
//
//	w(i, j) = exp(-d(i, j)² / (2σ²))
//
// where σ is the population standard deviation of all reachable pairwise
// distances; unreachable pairs get zero affinity. The graph Laplacian
// L = D - W is decomposed with gonum's symmetric eigensolver and vertices
// are split by the sign of the Fiedler vector, the eigenvector of the
// second-smallest eigenvalue. For more than two parts the largest remaining
// part is bisected again until the requested count is reached.
package partition

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// ErrPartitioningFailed is returned when the vertices cannot be partitioned.
var ErrPartitioningFailed = perrors.New(perrors.ErrCodePartitioningFailed, "partitioning failed")

// signEpsilon treats Fiedler components this close to zero as non-negative,
// so rounding noise does not decide which side a vertex lands on.
const signEpsilon = 1e-12

// part is one entry of the bisection work queue.
type part struct {
	ids   []int
	final bool
}

// Spectral partitions the vertices of dist into at most n parts. The
// returned partitions are pairwise disjoint and together hold every vertex.
//
// A part whose bisection is degenerate (one side empty) is kept whole and
// not split again, so fewer than n partitions are returned when every
// remaining part is final. Partitions are ordered by their smallest vertex
// id and numbered from 0; vertex ids within a partition are ascending.
//
// Vertices with no path between them are split apart before any spectral
// bisection. Spectral fails with [ErrPartitioningFailed] for an empty
// matrix, n < 1, a connected part that must be bisected while the reachable
// distances have no variance, or when the eigensolver does not converge.
func Spectral(dist *distance.Matrix, n int) ([]patrol.Partition, error) {
	if dist == nil || dist.Len() == 0 {
		return nil, perrors.Wrap(perrors.ErrCodePartitioningFailed, ErrPartitioningFailed, "no vertices to partition")
	}
	if n < 1 {
		return nil, perrors.Wrap(perrors.ErrCodePartitioningFailed, ErrPartitioningFailed, "partition count must be >= 1, got %d", n)
	}

	all := make([]int, dist.Len())
	for i := range all {
		all[i] = i
	}
	if n == 1 {
		return []patrol.Partition{{ID: 0, VertexIDs: all}}, nil
	}

	// σ is only needed once a part has to be split spectrally; groups
	// without a path between them are separated first.
	sigma := dist.Std()
	queue := []*part{{ids: all}}
	for len(queue) < n {
		next := largest(queue)
		if next == nil {
			break
		}
		a, b := splitUnreachable(dist, next.ids)
		if len(b) == 0 {
			if sigma == 0 || math.IsNaN(sigma) {
				return nil, perrors.Wrap(perrors.ErrCodePartitioningFailed, ErrPartitioningFailed,
					"distances have zero variance, cannot bisect %d connected vertices", len(next.ids))
			}
			var err error
			if a, b, err = Bisect(dist, next.ids, sigma); err != nil {
				return nil, err
			}
		}
		if len(a) == 0 || len(b) == 0 {
			next.final = true
			continue
		}
		next.ids = a
		queue = append(queue, &part{ids: b})
	}

	slices.SortFunc(queue, func(x, y *part) int { return x.ids[0] - y.ids[0] })
	out := make([]patrol.Partition, len(queue))
	for i, p := range queue {
		out[i] = patrol.Partition{ID: i, VertexIDs: p.ids}
	}
	return out, nil
}

// largest returns the biggest part that may still be split, preferring the
// earliest on ties, or nil if every part is final.
func largest(queue []*part) *part {
	var best *part
	for _, p := range queue {
		if p.final || len(p.ids) < 2 {
			continue
		}
		if best == nil || len(p.ids) > len(best.ids) {
			best = p
		}
	}
	return best
}

// Bisect splits ids, a sorted subset of the vertices of dist, by the sign of
// the Fiedler vector of the subset's Gaussian affinity Laplacian. The
// vector's orientation is fixed so that ids[0] always lands in a. Both
// halves keep ascending order. One half is empty when the split is
// degenerate.
func Bisect(dist *distance.Matrix, ids []int, sigma float64) (a, b []int, err error) {
	if len(ids) < 2 {
		return slices.Clone(ids), nil, nil
	}

	// Without any path between its halves the Laplacian has several zero
	// eigenvalues and no meaningful Fiedler vector; split off the component
	// holding ids[0] instead.
	if a, b := splitUnreachable(dist, ids); len(b) > 0 {
		return a, b, nil
	}

	lap := Laplacian(dist, ids, sigma)
	var eig mat.EigenSym
	if ok := eig.Factorize(lap, true); !ok {
		return nil, nil, perrors.Wrap(perrors.ErrCodePartitioningFailed, ErrPartitioningFailed,
			"eigendecomposition of %d x %d Laplacian did not converge", len(ids), len(ids))
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	fiedler := vecs.ColView(1)
	orient := 1.0
	if fiedler.AtVec(0) < -signEpsilon {
		orient = -1
	}
	for i, id := range ids {
		if orient*fiedler.AtVec(i) >= -signEpsilon {
			a = append(a, id)
		} else {
			b = append(b, id)
		}
	}
	return a, b, nil
}

// Laplacian returns L = D - W for the vertices in ids, where W is the
// Gaussian affinity matrix with bandwidth sigma and D the diagonal degree
// matrix of W.
func Laplacian(dist *distance.Matrix, ids []int, sigma float64) *mat.SymDense {
	n := len(ids)
	lap := mat.NewSymDense(n, nil)
	denom := 2 * sigma * sigma
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist.Raw(ids[i], ids[j])
			if d == distance.Unreachable {
				continue
			}
			w := math.Exp(-float64(d*d) / denom)
			lap.SetSym(i, j, -w)
			lap.SetSym(i, i, lap.At(i, i)+w)
			lap.SetSym(j, j, lap.At(j, j)+w)
		}
	}
	return lap
}

// splitUnreachable separates the vertices reachable from ids[0] from the
// rest. b is empty when all of ids are mutually reachable.
func splitUnreachable(dist *distance.Matrix, ids []int) (a, b []int) {
	reached := make([]bool, len(ids))
	reached[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for j := range ids {
			if !reached[j] && dist.Reachable(ids[i], ids[j]) {
				reached[j] = true
				stack = append(stack, j)
			}
		}
	}
	for i, id := range ids {
		if reached[i] {
			a = append(a, id)
		} else {
			b = append(b, id)
		}
	}
	return a, b
}
