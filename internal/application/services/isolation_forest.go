package services

import (
	"math"
	"math/rand"
	"sort"
)

const (
	isolationForestTrees      = 100
	isolationForestSampleSize = 256
)

// isolationTreeNode is a node in a random isolation tree: an internal
// split node with a feature/threshold pair, or a leaf recording the
// depth at which the partition bottomed out.
type isolationTreeNode struct {
	feature   int
	threshold float64
	left      *isolationTreeNode
	right     *isolationTreeNode
	isLeaf    bool
	size      int
}

// isolationForest scores points by mean path length across a set of
// random isolation trees: anomalies isolate faster (shorter paths)
// because they sit apart from the bulk of the data.
type isolationForest struct {
	trees      []*isolationTreeNode
	sampleSize int
	dims       int
}

func newIsolationForest(features [][]float64, rng *rand.Rand) *isolationForest {
	dims := 0
	if len(features) > 0 {
		dims = len(features[0])
	}
	sampleSize := len(features)
	if sampleSize > isolationForestSampleSize {
		sampleSize = isolationForestSampleSize
	}

	forest := &isolationForest{sampleSize: sampleSize, dims: dims}
	if len(features) == 0 || dims == 0 {
		return forest
	}

	maxDepth := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))
	for t := 0; t < isolationForestTrees; t++ {
		sample := sampleRows(features, sampleSize, rng)
		forest.trees = append(forest.trees, buildIsolationTree(sample, 0, maxDepth, rng))
	}
	return forest
}

func sampleRows(features [][]float64, sampleSize int, rng *rand.Rand) [][]float64 {
	if sampleSize >= len(features) {
		out := make([][]float64, len(features))
		copy(out, features)
		return out
	}
	idx := rng.Perm(len(features))[:sampleSize]
	out := make([][]float64, sampleSize)
	for i, j := range idx {
		out[i] = features[j]
	}
	return out
}

func buildIsolationTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *isolationTreeNode {
	if depth >= maxDepth || len(rows) <= 1 {
		return &isolationTreeNode{isLeaf: true, size: len(rows)}
	}

	dims := len(rows[0])
	feature := rng.Intn(dims)

	minV, maxV := rows[0][feature], rows[0][feature]
	for _, r := range rows {
		if r[feature] < minV {
			minV = r[feature]
		}
		if r[feature] > maxV {
			maxV = r[feature]
		}
	}
	if minV == maxV {
		return &isolationTreeNode{isLeaf: true, size: len(rows)}
	}

	threshold := minV + rng.Float64()*(maxV-minV)
	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isolationTreeNode{isLeaf: true, size: len(rows)}
	}

	return &isolationTreeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildIsolationTree(left, depth+1, maxDepth, rng),
		right:     buildIsolationTree(right, depth+1, maxDepth, rng),
	}
}

// pathLength walks x down the tree, adding the average-path-length
// correction c(size) once a leaf covering more than one training point
// is reached (the standard isolation-forest early-termination adjustment).
func pathLength(node *isolationTreeNode, x []float64, depth int) float64 {
	if node.isLeaf {
		return float64(depth) + averagePathLengthCorrection(node.size)
	}
	if x[node.feature] < node.threshold {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

func averagePathLengthCorrection(size int) float64 {
	if size <= 1 {
		return 0
	}
	n := float64(size)
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// anomalyScore is the standard isolation-forest score in [0,1]: values
// close to 1 indicate a short average path length (likely anomaly).
func (f *isolationForest) anomalyScore(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, tree := range f.trees {
		sum += pathLength(tree, x, 0)
	}
	meanPath := sum / float64(len(f.trees))
	c := averagePathLengthCorrection(f.sampleSize)
	if c == 0 {
		return 0
	}
	return math.Pow(2, -meanPath/c)
}

// outliers scores every row and returns the indices of the top
// contamination fraction by anomaly score (at least one, if any rows
// exist at all).
func (f *isolationForest) outliers(features [][]float64, contamination float64) []int {
	if len(features) == 0 || len(f.trees) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(features))
	for i, row := range features {
		scores[i] = scored{idx: i, score: f.anomalyScore(row)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	count := int(math.Ceil(contamination * float64(len(features))))
	if count < 1 {
		count = 1
	}
	if count > len(scores) {
		count = len(scores)
	}

	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = scores[i].idx
	}
	return out
}
