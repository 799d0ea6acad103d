package modeling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
)

// node is one node of a regression tree stored in a flat slice. Leaves
// carry the value; inner nodes route x[Feature] <= Threshold to Left.
type node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// gbt is gradient boosting with squared loss over shallow regression
// trees. Row subsampling is driven by a seeded generator so a fit is
// reproducible.
type gbt struct {
	Names        []string `json:"features"`
	Base         float64  `json:"base"`
	LearningRate float64  `json:"learning_rate"`
	Trees        [][]node `json:"trees"`

	cfg  config.GBTConfig
	seed int64
}

func newGBT(cfg config.GBTConfig, seed int64) *gbt {
	return &gbt{cfg: cfg, seed: seed, LearningRate: cfg.LearningRate}
}

func (m *gbt) Kind() string { return models.KindGBT }

func (m *gbt) Features() []string { return m.Names }

func (m *gbt) Params() (json.RawMessage, error) { return json.Marshal(m) }

func (m *gbt) Fit(schema []string, X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("gbt: need matching non-empty X and y, got %d and %d", n, len(y))
	}
	if m.cfg.Trees < 1 || m.cfg.MaxDepth < 1 {
		return fmt.Errorf("gbt: invalid configuration trees=%d depth=%d", m.cfg.Trees, m.cfg.MaxDepth)
	}
	minLeaf := m.cfg.MinLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	rng := rand.New(rand.NewSource(m.seed))
	sampleSize := int(math.Ceil(m.cfg.Subsample * float64(n)))
	if sampleSize < 1 || sampleSize > n {
		sampleSize = n
	}

	base := 0.0
	for _, v := range y {
		base += v
	}
	base /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}
	resid := make([]float64, n)

	trees := make([][]node, 0, m.cfg.Trees)
	for t := 0; t < m.cfg.Trees; t++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		idx := rng.Perm(n)[:sampleSize]
		sort.Ints(idx)

		g := grower{x: X, r: resid, maxDepth: m.cfg.MaxDepth, minLeaf: minLeaf, features: len(schema)}
		g.grow(idx, 0)
		trees = append(trees, g.nodes)

		for i := range X {
			pred[i] += m.LearningRate * evalTree(g.nodes, X[i])
		}
	}

	m.Names = append([]string(nil), schema...)
	m.Base = base
	m.Trees = trees
	return nil
}

func (m *gbt) Predict(x []float64) float64 {
	v := m.Base
	for _, t := range m.Trees {
		v += m.LearningRate * evalTree(t, x)
	}
	return v
}

func evalTree(nodes []node, x []float64) float64 {
	i := 0
	for !nodes[i].Leaf {
		if x[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}

type grower struct {
	x        [][]float64
	r        []float64
	maxDepth int
	minLeaf  int
	features int
	nodes    []node
}

// grow appends the subtree for idx and returns its root position
func (g *grower) grow(idx []int, depth int) int {
	pos := len(g.nodes)
	sum := 0.0
	for _, i := range idx {
		sum += g.r[i]
	}
	g.nodes = append(g.nodes, node{Leaf: true, Value: sum / float64(len(idx))})

	if depth >= g.maxDepth || len(idx) < 2*g.minLeaf {
		return pos
	}
	feature, threshold, ok := g.bestSplit(idx, sum)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[pos] = node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: g.nodes[pos].Value}
	return pos
}

// bestSplit finds the split with the largest reduction of squared error.
// Ties keep the first candidate found, scanning features in schema order.
func (g *grower) bestSplit(idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	bestGain := 1e-9
	bestFeature, bestThreshold, found := 0, 0.0, false
	sorted := make([]int, n)

	for f := 0; f < g.features; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return g.x[sorted[a]][f] < g.x[sorted[b]][f]
		})

		left := 0.0
		parent := total * total / float64(n)
		for k := 1; k < n; k++ {
			left += g.r[sorted[k-1]]
			if k < g.minLeaf || n-k < g.minLeaf {
				continue
			}
			lo, hi := g.x[sorted[k-1]][f], g.x[sorted[k]][f]
			if lo == hi {
				continue
			}
			right := total - left
			gain := left*left/float64(k) + right*right/float64(n-k) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (lo + hi) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
