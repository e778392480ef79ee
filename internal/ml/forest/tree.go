package forest

import (
	"math/rand/v2"
	"sort"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// A Node is either a split "x[Feature] <= Threshold ?" or a leaf holding a class distribution.
type Node struct {
	Feature   int
	Threshold float64
	// Left and Right index into Tree.Nodes; unused for leaves.
	Left  int
	Right int
	Leaf  bool
	Proba [domain.NumClasses]float64
}

// A Tree is a CART classification tree stored as a flat node list rooted at index 0.
type Tree struct {
	Nodes []Node
}

// Proba drops x down the tree and returns the leaf distribution.
func (t *Tree) Proba(x []float64) [domain.NumClasses]float64 {
	cur := t.Nodes[0]
	for !cur.Leaf {
		if x[cur.Feature] <= cur.Threshold {
			cur = t.Nodes[cur.Left]
		} else {
			cur = t.Nodes[cur.Right]
		}
	}
	return cur.Proba
}

// grower builds one tree over a bootstrap sample.
type grower struct {
	x           [][]float64
	y           []domain.Label
	params      Params
	maxFeatures int
	rng         *rand.Rand
	nodes       []Node
	importance  []float64
	// scratch
	features []int
	pairs    []pair
}

type pair struct {
	value float64
	label domain.Label
	idx   int
}

func newGrower(x [][]float64, y []domain.Label, params Params, maxFeatures int, rng *rand.Rand) *grower {
	width := len(x[0])
	features := make([]int, width)
	for i := range features {
		features[i] = i
	}
	return &grower{
		x:           x,
		y:           y,
		params:      params,
		maxFeatures: maxFeatures,
		rng:         rng,
		importance:  make([]float64, width),
		features:    features,
	}
}

// bootstrap draws len(x) row indices with replacement.
func (g *grower) bootstrap() []int {
	idx := make([]int, len(g.x))
	for i := range idx {
		idx[i] = g.rng.IntN(len(g.x))
	}
	return idx
}

func (g *grower) grow(sample []int) Tree {
	g.nodes = nil
	g.build(sample, 0)
	return Tree{Nodes: g.nodes}
}

func classCounts(y []domain.Label, idx []int) [domain.NumClasses]float64 {
	var c [domain.NumClasses]float64
	for _, i := range idx {
		c[y[i]]++
	}
	return c
}

func gini(c [domain.NumClasses]float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, v := range c {
		p := v / n
		g -= p * p
	}
	return g
}

// build appends the subtree for idx and returns its node index.
func (g *grower) build(idx []int, depth int) int {
	counts := classCounts(g.y, idx)
	n := float64(len(idx))
	self := len(g.nodes)
	g.nodes = append(g.nodes, leafNode(counts, n))

	impurity := gini(counts, n)
	if impurity == 0 ||
		len(idx) < g.params.MinSamplesSplit ||
		len(idx) < 2*g.params.MinSamplesLeaf ||
		(g.params.MaxDepth > 0 && depth >= g.params.MaxDepth) {
		return self
	}

	feature, threshold, childImpurity, ok := g.bestSplit(idx, counts)
	if !ok {
		return self
	}
	g.importance[feature] += n*impurity - childImpurity

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

func leafNode(counts [domain.NumClasses]float64, n float64) Node {
	nd := Node{Leaf: true}
	for c := range counts {
		if n > 0 {
			nd.Proba[c] = counts[c] / n
		}
	}
	return nd
}

// bestSplit samples maxFeatures candidate columns and returns the split with the
// lowest weighted child Gini. childImpurity is n_left*gini_left + n_right*gini_right.
func (g *grower) bestSplit(idx []int, total [domain.NumClasses]float64) (int, float64, float64, bool) {
	// partial Fisher-Yates over the feature list
	k := g.maxFeatures
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(len(g.features)-i)
		g.features[i], g.features[j] = g.features[j], g.features[i]
	}

	minLeaf := g.params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	n := len(idx)
	best := -1.0
	bestFeature, bestThreshold := 0, 0.0

	if cap(g.pairs) < n {
		g.pairs = make([]pair, n)
	}
	pairs := g.pairs[:n]

	for _, f := range g.features[:k] {
		for p, i := range idx {
			pairs[p] = pair{value: g.x[i][f], label: g.y[i], idx: i}
		}
		if pairs[0].value == maxValue(pairs) {
			continue
		}
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].value != pairs[b].value {
				return pairs[a].value < pairs[b].value
			}
			return pairs[a].idx < pairs[b].idx
		})

		var left [domain.NumClasses]float64
		for p := 0; p < n-1; p++ {
			left[pairs[p].label]++
			if pairs[p].value == pairs[p+1].value {
				continue
			}
			nl := p + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			var right [domain.NumClasses]float64
			for c := range total {
				right[c] = total[c] - left[c]
			}
			score := float64(nl)*gini(left, float64(nl)) + float64(nr)*gini(right, float64(nr))
			if best < 0 || score < best {
				best = score
				bestFeature = f
				bestThreshold = (pairs[p].value + pairs[p+1].value) / 2
			}
		}
	}
	if best < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, best, true
}

func maxValue(pairs []pair) float64 {
	m := pairs[0].value
	for _, p := range pairs[1:] {
		if p.value > m {
			m = p.value
		}
	}
	return m
}
