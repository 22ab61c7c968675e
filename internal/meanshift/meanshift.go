// Package meanshift implements 1-dimensional mean-shift clustering over a
// slice of points. It is adapted from a standalone clustering utility
// that shipped alongside the instrumentation passes this module is built
// around, but it has no connection to either pass: it does not read IR,
// does not touch coverage maps, and is not invoked anywhere in the
// switchsplit/instrument/pipeline call graph. It is kept, and exposed via
// cmd/meanshift, purely as the standalone data-analysis tool it always
// was.
package meanshift

import "math"

// Config holds the tunable parameters of the algorithm.
type Config struct {
	// ClusterWidth bounds how far a point may be from another point for
	// that point to contribute to its mean shift.
	ClusterWidth float64
	// KernelBandwidth controls how quickly the Gaussian kernel's weight
	// falls off with distance.
	KernelBandwidth float64
	// EpsilonSqr is the squared-distance convergence threshold: once no
	// point moves further than this in one iteration, shifting stops.
	EpsilonSqr float64
	// ClusterEpsilon is the maximum distance between a shifted point and
	// an existing cluster's mode for the point to join that cluster.
	ClusterEpsilon float64
}

// DefaultConfig matches the constants used by the original utility.
func DefaultConfig() Config {
	return Config{
		ClusterWidth:    10,
		KernelBandwidth: 20,
		EpsilonSqr:      1,
		ClusterEpsilon:  1.5,
	}
}

// Cluster is one mode found by ClusterPoints, with the original and shifted
// points that converged to it.
type Cluster struct {
	Mode           float64
	OriginalPoints []float64
	ShiftedPoints  []float64
}

func euclideanDistance(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func euclideanDistanceSqr(a, b float64) float64 {
	d := a - b
	return d * d
}

func gaussianKernel(distance, bandwidth float64) float64 {
	return math.Exp(-0.5 * (distance * distance) / (bandwidth * bandwidth))
}

// shiftPoint computes the new position of one point as the Gaussian-kernel
// weighted mean of every origin point within cfg.ClusterWidth of it.
func shiftPoint(point float64, origins []float64, cfg Config) float64 {
	var totalWeight, shifted float64
	for _, o := range origins {
		distance := euclideanDistance(point, o)
		if distance > cfg.ClusterWidth {
			continue
		}
		weight := gaussianKernel(distance, cfg.KernelBandwidth)
		shifted += o * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return point
	}
	return shifted / totalWeight
}

// Shift runs the iterative mean-shift procedure over origins until no
// point moves more than cfg.EpsilonSqr (squared) in one pass, returning
// the final shifted positions, one per input point in the same order.
func Shift(origins []float64, cfg Config) []float64 {
	shifted := append([]float64(nil), origins...)
	stopped := make([]bool, len(origins))

	for {
		maxShiftSqr := 0.0
		for i, p := range shifted {
			if stopped[i] {
				continue
			}
			next := shiftPoint(p, origins, cfg)
			d := euclideanDistanceSqr(next, p)
			if d > maxShiftSqr {
				maxShiftSqr = d
			}
			if d <= cfg.EpsilonSqr {
				stopped[i] = true
			}
			shifted[i] = next
		}
		if maxShiftSqr <= cfg.EpsilonSqr {
			break
		}
	}
	return shifted
}

// ClusterPoints groups origins by their shifted positions: any two shifted
// points within cfg.ClusterEpsilon of the same running mode join one
// cluster.
func ClusterPoints(origins []float64, cfg Config) []Cluster {
	shifted := Shift(origins, cfg)

	var clusters []Cluster
	for i, s := range shifted {
		idx := -1
		for c := range clusters {
			if euclideanDistance(s, clusters[c].Mode) <= cfg.ClusterEpsilon {
				idx = c
				break
			}
		}
		if idx == -1 {
			clusters = append(clusters, Cluster{Mode: s})
			idx = len(clusters) - 1
		}
		if s > clusters[idx].Mode {
			clusters[idx].Mode = s
		}
		clusters[idx].OriginalPoints = append(clusters[idx].OriginalPoints, origins[i])
		clusters[idx].ShiftedPoints = append(clusters[idx].ShiftedPoints, s)
	}
	return clusters
}
