package palette

import (
	"math"
	"math/rand/v2"
)

// weighted is a distinct pool color with the number of pixels that carry it.
type weighted struct {
	p [3]float64
	w float64
}

type clustering struct {
	centers     [][3]float64
	labels      []int
	compactness float64
	iterations  int
}

func sqDist(a, b [3]float64) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dr*dr + dg*dg + db*db
}

// dedupe collapses pixels into distinct colors in first-seen order with
// their counts.
func dedupe(pixels []Color) ([]Color, []int) {
	index := make(map[Color]int, 1024)
	var colors []Color
	var counts []int
	for _, px := range pixels {
		i, ok := index[px]
		if !ok {
			i = len(colors)
			index[px] = i
			colors = append(colors, px)
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return colors, counts
}

// pickWeighted draws an index with probability proportional to weights.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// seedPlusPlus picks k initial centers: the first with probability
// proportional to weight, every next one proportional to weight times the
// squared distance to the nearest center picked so far.
func seedPlusPlus(rng *rand.Rand, pts []weighted, k int) [][3]float64 {
	centers := make([][3]float64, 0, k)
	weights := make([]float64, len(pts))
	for i, pt := range pts {
		weights[i] = pt.w
	}
	centers = append(centers, pts[pickWeighted(rng, weights)].p)

	nearest := make([]float64, len(pts))
	for i, pt := range pts {
		nearest[i] = sqDist(pt.p, centers[0])
	}
	for len(centers) < k {
		for i, pt := range pts {
			weights[i] = pt.w * nearest[i]
		}
		c := pts[pickWeighted(rng, weights)].p
		centers = append(centers, c)
		for i, pt := range pts {
			if d := sqDist(pt.p, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centers
}

func assign(pts []weighted, centers [][3]float64, labels []int) float64 {
	var compactness float64
	for i, pt := range pts {
		best, bestD := 0, math.Inf(1)
		for j, c := range centers {
			if d := sqDist(pt.p, c); d < bestD {
				best, bestD = j, d
			}
		}
		labels[i] = best
		compactness += pt.w * bestD
	}
	return compactness
}

// update recomputes centers as weighted means of their members. A cluster
// left empty takes over the point farthest from its own center, provided
// that point's cluster keeps at least one other member. It returns the
// largest squared center shift.
func update(pts []weighted, centers [][3]float64, labels []int) float64 {
	k := len(centers)
	sums := make([][3]float64, k)
	weight := make([]float64, k)
	members := make([]int, k)
	for i, pt := range pts {
		l := labels[i]
		sums[l][0] += pt.w * pt.p[0]
		sums[l][1] += pt.w * pt.p[1]
		sums[l][2] += pt.w * pt.p[2]
		weight[l] += pt.w
		members[l]++
	}

	for j := range k {
		if members[j] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, pt := range pts {
			if members[labels[i]] < 2 {
				continue
			}
			if d := sqDist(pt.p, centers[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			continue
		}
		pt, from := pts[far], labels[far]
		for ch := range 3 {
			sums[from][ch] -= pt.w * pt.p[ch]
			sums[j][ch] = pt.w * pt.p[ch]
		}
		weight[from] -= pt.w
		weight[j] = pt.w
		members[from]--
		members[j] = 1
		labels[far] = j
	}

	var maxShift float64
	for j := range k {
		if weight[j] <= 0 {
			continue
		}
		next := [3]float64{sums[j][0] / weight[j], sums[j][1] / weight[j], sums[j][2] / weight[j]}
		if d := sqDist(next, centers[j]); d > maxShift {
			maxShift = d
		}
		centers[j] = next
	}
	return maxShift
}

// kmeans runs weighted Lloyd iterations from attempts independent
// k-means++ seedings and keeps the result with the lowest compactness.
// Iteration stops after maxIter rounds or once no center moves further
// than eps. len(pts) must exceed k.
func kmeans(rng *rand.Rand, pts []weighted, k, attempts, maxIter int, eps float64) clustering {
	var best clustering
	best.compactness = math.Inf(1)
	epsSq := eps * eps

	for range attempts {
		centers := seedPlusPlus(rng, pts, k)
		labels := make([]int, len(pts))
		iter := 0
		for iter < maxIter {
			iter++
			assign(pts, centers, labels)
			if update(pts, centers, labels) <= epsSq {
				break
			}
		}
		compactness := assign(pts, centers, labels)
		if compactness < best.compactness {
			best = clustering{
				centers:     centers,
				labels:      labels,
				compactness: compactness,
				iterations:  iter,
			}
		}
	}
	return best
}

func toChannel(v float64) uint8 {
	r := math.Round(v)
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	}
	return uint8(r)
}
