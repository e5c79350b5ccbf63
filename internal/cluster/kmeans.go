package cluster

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

type FitOptions struct {
	K             int
	MaxIterations int
}

// Fit runs Lloyd's iterative centroid refinement over the population and
// returns an immutable model. Seeding is deterministic farthest-point: the
// first centroid is the point nearest the population mean, each further
// centroid is the point maximizing its minimum distance to the chosen set,
// with index order breaking ties. A centroid that ends an iteration with no
// assigned points is reinitialized to the point farthest from all other
// centroids. The context is checked between iterations so large fits honor
// caller cancellation.
func Fit(ctx context.Context, population []domain.BehavioralFeatureVector, opts FitOptions) (*domain.ClusterModel, error) {
	k := opts.K
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid cluster count %d", k)
	}
	if len(population) < k {
		return nil, fmt.Errorf("population of %d below cluster count %d: %w",
			len(population), k, domain.ErrInsufficientData)
	}

	points := make([][]float64, len(population))
	for i, v := range population {
		points[i] = v.Values()
	}

	centroids := seedCentroids(points, k)
	assignments := assignAll(points, centroids)

	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit canceled after %d iterations: %w", iter, err)
		}
		iterations = iter + 1

		centroids = recomputeCentroids(points, assignments, centroids)
		reseedEmpty(points, assignments, centroids)

		next := assignAll(points, centroids)
		if equalAssignments(next, assignments) {
			assignments = next
			break
		}
		assignments = next
	}

	labels := make([]string, k)
	descriptions := make([]string, k)
	for i, c := range centroids {
		labels[i], descriptions[i] = personaFor(c)
	}

	return &domain.ClusterModel{
		Centroids:      centroids,
		Labels:         labels,
		Descriptions:   descriptions,
		FittedAt:       time.Now().UTC(),
		PopulationSize: len(population),
		Iterations:     iterations,
	}, nil
}

func seedCentroids(points [][]float64, k int) [][]float64 {
	mean := make([]float64, len(points[0]))
	for _, p := range points {
		for i, v := range p {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(points))
	}

	chosen := make([]int, 0, k)
	first, best := 0, math.Inf(1)
	for i, p := range points {
		if d := euclidean(p, mean); d < best {
			first, best = i, d
		}
	}
	chosen = append(chosen, first)

	for len(chosen) < k {
		next, bestMin := -1, -1.0
		for i, p := range points {
			minDist := math.Inf(1)
			for _, c := range chosen {
				if d := euclidean(p, points[c]); d < minDist {
					minDist = d
				}
			}
			if minDist > bestMin {
				next, bestMin = i, minDist
			}
		}
		chosen = append(chosen, next)
	}

	centroids := make([][]float64, k)
	for i, idx := range chosen {
		centroids[i] = append([]float64(nil), points[idx]...)
	}
	return centroids
}

func assignAll(points, centroids [][]float64) []int {
	assignments := make([]int, len(points))
	for i, p := range points {
		assignments[i], _ = nearestCentroid(centroids, p)
	}
	return assignments
}

// nearestCentroid returns the index of the closest centroid by Euclidean
// distance; the lowest index wins ties.
func nearestCentroid(centroids [][]float64, point []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := euclidean(point, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func recomputeCentroids(points [][]float64, assignments []int, prev [][]float64) [][]float64 {
	dim := len(points[0])
	k := len(prev)
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, p := range points {
		c := assignments[i]
		counts[c]++
		for j, v := range p {
			sums[c][j] += v
		}
	}

	centroids := make([][]float64, k)
	for i := range sums {
		if counts[i] == 0 {
			// keep the previous position until reseedEmpty relocates it
			centroids[i] = append([]float64(nil), prev[i]...)
			continue
		}
		c := make([]float64, dim)
		for j := range sums[i] {
			c[j] = sums[i][j] / float64(counts[i])
		}
		centroids[i] = c
	}
	return centroids
}

// reseedEmpty relocates centroids that received no points to the point
// farthest from every other centroid, preventing empty clusters.
func reseedEmpty(points [][]float64, assignments []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	for _, a := range assignments {
		counts[a]++
	}
	for i, n := range counts {
		if n > 0 {
			continue
		}
		far, farDist := 0, -1.0
		for j, p := range points {
			minDist := math.Inf(1)
			for l, c := range centroids {
				if l == i {
					continue
				}
				if d := euclidean(p, c); d < minDist {
					minDist = d
				}
			}
			if minDist > farDist {
				far, farDist = j, minDist
			}
		}
		centroids[i] = append([]float64(nil), points[far]...)
	}
}

func equalAssignments(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
