package palette

import (
	"math"
	"math/rand/v2"
)

type sample struct {
	lab    [3]float64
	weight float64
}

type cluster struct {
	center [3]float64
	weight float64
}

// kmeans runs weighted Lloyd iterations seeded with k-means++. Identical
// samples, k and seed always produce identical clusters.
func kmeans(samples []sample, k, maxIter int, delta float64, seed uint64) []cluster {
	if len(samples) == 0 || k < 1 {
		return nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centers := seedCenters(samples, k, rng)

	sums := make([][3]float64, len(centers))
	weights := make([]float64, len(centers))
	for iter := 0; iter < maxIter; iter++ {
		accumulate(samples, centers, sums, weights)

		shift := 0.0
		for c := range centers {
			if weights[c] == 0 {
				continue
			}
			next := [3]float64{
				sums[c][0] / weights[c],
				sums[c][1] / weights[c],
				sums[c][2] / weights[c],
			}
			shift = math.Max(shift, math.Sqrt(dist2(next, centers[c])))
			centers[c] = next
		}
		if shift < delta {
			break
		}
	}

	accumulate(samples, centers, sums, weights)
	out := make([]cluster, 0, len(centers))
	for c := range centers {
		if weights[c] == 0 {
			continue
		}
		out = append(out, cluster{center: centers[c], weight: weights[c]})
	}
	return out
}

func accumulate(samples []sample, centers [][3]float64, sums [][3]float64, weights []float64) {
	for c := range centers {
		sums[c] = [3]float64{}
		weights[c] = 0
	}
	for _, s := range samples {
		c := nearest(centers, s.lab)
		sums[c][0] += s.lab[0] * s.weight
		sums[c][1] += s.lab[1] * s.weight
		sums[c][2] += s.lab[2] * s.weight
		weights[c] += s.weight
	}
}

func seedCenters(samples []sample, k int, rng *rand.Rand) [][3]float64 {
	total := 0.0
	for _, s := range samples {
		total += s.weight
	}

	centers := make([][3]float64, 0, k)
	centers = append(centers, samples[pick(samples, nil, total, rng)].lab)

	d2 := make([]float64, len(samples))
	for len(centers) < k {
		sum := 0.0
		for i, s := range samples {
			d2[i] = dist2(s.lab, centers[nearest(centers, s.lab)]) * s.weight
			sum += d2[i]
		}
		if sum == 0 {
			// Fewer distinct colors than k.
			break
		}
		centers = append(centers, samples[pick(samples, d2, sum, rng)].lab)
	}
	return centers
}

// pick draws an index proportionally to scores, or to sample weights when
// scores is nil.
func pick(samples []sample, scores []float64, total float64, rng *rand.Rand) int {
	target := rng.Float64() * total
	acc := 0.0
	for i := range samples {
		if scores != nil {
			acc += scores[i]
		} else {
			acc += samples[i].weight
		}
		if acc > target {
			return i
		}
	}
	return len(samples) - 1
}

func nearest(centers [][3]float64, p [3]float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := dist2(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func dist2(a, b [3]float64) float64 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}
