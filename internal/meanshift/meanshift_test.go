package meanshift

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShiftConverges(t *testing.T) {
	points := []float64{1, 2, 3, 4, 5, 40, 41, 42, 43, 44}
	shifted := Shift(points, DefaultConfig())
	assert.Len(t, shifted, len(points))
}

func TestClusterPointsSeparatesDistantGroups(t *testing.T) {
	points := []float64{1, 2, 3, 4, 5, 40, 41, 42, 43, 44}
	clusters := ClusterPoints(points, DefaultConfig())

	assert.Len(t, clusters, 2)
	total := 0
	for _, c := range clusters {
		total += len(c.OriginalPoints)
	}
	assert.Equal(t, len(points), total)
}

func TestClusterPointsSingleGroup(t *testing.T) {
	points := []float64{10, 11, 12, 13}
	clusters := ClusterPoints(points, DefaultConfig())
	assert.Len(t, clusters, 1)
}
