package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_PointsBeforeDistance(t *testing.T) {
	runners := []Runner{
		{ID: "a", Points: 10, Distance: 9.0},
		{ID: "b", Points: 25, Distance: 1.0}, // fewer km but more points
		{ID: "c", Points: 10, Distance: 2.0},
	}

	ranked := Rank(runners)

	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, "a", ranked[1].ID) // points tie, longer distance wins
	assert.Equal(t, "c", ranked[2].ID)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	runners := []Runner{
		{ID: "a", Points: 1},
		{ID: "b", Points: 2},
	}

	Rank(runners)

	assert.Equal(t, "a", runners[0].ID)
}

func TestRank_StableForFullTies(t *testing.T) {
	runners := []Runner{
		{ID: "first", Points: 5, Distance: 1.0},
		{ID: "second", Points: 5, Distance: 1.0},
	}

	ranked := Rank(runners)

	assert.Equal(t, "first", ranked[0].ID)
	assert.Equal(t, "second", ranked[1].ID)
}
