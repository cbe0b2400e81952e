package index

import (
	"container/heap"
	"sort"

	"github.com/stratadb/stratadb/internal/vdberrors"
	"github.com/stratadb/stratadb/internal/vector"
)

// kdNode is a node in a KD-tree split on a single axis, chosen by
// cycling through dimensions with tree depth.
type kdNode struct {
	point []float64
	id    string
	axis  int
	left  *kdNode
	right *kdNode
}

// KDTree indexes vectors for Euclidean nearest-neighbor search via a
// balanced, median-split binary tree. It supports only the euclidean
// metric.
type KDTree struct {
	root *kdNode
	dim  int
}

// NewKDTree returns an empty KD-tree index.
func NewKDTree() *KDTree {
	return &KDTree{}
}

func (t *KDTree) Build(vectors [][]float64, ids []string) error {
	if err := validateBuildInputs(vectors, ids); err != nil {
		return err
	}
	if len(vectors) == 0 {
		t.root = nil
		t.dim = 0
		return nil
	}
	t.dim = len(vectors[0])
	t.root = buildKD(vectors, ids, 0)
	return nil
}

func buildKD(points [][]float64, ids []string, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0])
	axis := depth % dim

	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return points[idx[i]][axis] < points[idx[j]][axis] })

	median := len(idx) / 2
	medianPoint := points[idx[median]]
	medianID := ids[idx[median]]

	leftPoints := make([][]float64, median)
	leftIDs := make([]string, median)
	for i, j := range idx[:median] {
		leftPoints[i] = points[j]
		leftIDs[i] = ids[j]
	}

	rightPoints := make([][]float64, len(idx)-median-1)
	rightIDs := make([]string, len(idx)-median-1)
	for i, j := range idx[median+1:] {
		rightPoints[i] = points[j]
		rightIDs[i] = ids[j]
	}

	return &kdNode{
		point: medianPoint,
		id:    medianID,
		axis:  axis,
		left:  buildKD(leftPoints, leftIDs, depth+1),
		right: buildKD(rightPoints, rightIDs, depth+1),
	}
}

// candidate is a bounded max-heap entry keyed by distance: the largest
// distance (the worst kept neighbor) sits at the top so it can be
// evicted once the heap exceeds k entries.
type candidate struct {
	dist float64
	id   string
}

type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (t *KDTree) Query(v []float64, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	if t.dim != 0 && len(v) != t.dim {
		return nil, vdberrors.DimensionMismatch(t.dim, len(v))
	}

	h := &candidateHeap{}
	heap.Init(h)
	queryKD(t.root, v, k, h)

	matches := make([]Match, h.Len())
	for i := len(matches) - 1; i >= 0; i-- {
		c := heap.Pop(h).(candidate)
		matches[i] = Match{ID: c.id, Score: 1.0 / (1.0 + c.dist)}
	}
	return matches, nil
}

func queryKD(node *kdNode, target []float64, k int, h *candidateHeap) {
	if node == nil {
		return
	}

	dist, err := vector.Euclidean(target, node.point)
	if err != nil {
		return
	}
	heap.Push(h, candidate{dist: dist, id: node.id})
	if h.Len() > k {
		heap.Pop(h)
	}

	axis := node.axis
	diff := target[axis] - node.point[axis]

	first, second := node.left, node.right
	if diff >= 0 {
		first, second = node.right, node.left
	}

	queryKD(first, target, k, h)

	if h.Len() < k || absFloat(diff) < (*h)[0].dist {
		queryKD(second, target, k, h)
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func (t *KDTree) Metric() string { return "euclidean" }
func (t *KDTree) Kind() string   { return "kdtree" }
