package geodist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetweenKm(t *testing.T) {
	// Galata Tower to Maiden's Tower, Istanbul: roughly 2.5 km.
	d := BetweenKm(41.0256, 28.9744, 41.0211, 29.0041)
	assert.InDelta(t, 2.55, d, 0.3)

	// Identical points.
	assert.Zero(t, BetweenKm(41.01, 28.98, 41.01, 28.98))

	// ~0.0001 degrees apart stays well under the 1km merge threshold.
	d = BetweenKm(41.01, 28.98, 41.0101, 28.9801)
	assert.Less(t, d, 0.05)
}

func TestBetweenKm_KnownDistance(t *testing.T) {
	// London to Paris, ~344 km.
	d := BetweenKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344, d, 5)
}
