package feed

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValueCompatible(t *testing.T) {
	tests := []struct {
		name      string
		candidate float64
		ownValues []float64
		want      bool
	}{
		{"no own values matches everything", 500, nil, true},
		{"within 30 percent", 120, []float64{100}, true},
		{"outside 30 percent", 200, []float64{100}, false},
		{"within absolute tolerance on cheap items", 12, []float64{5}, true},
		{"matches any of several values", 190, []float64{20, 200}, true},
		{"zero own value still matches via absolute band", 8, []float64{0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValueCompatible(tt.candidate, tt.ownValues))
		})
	}
}

func TestHaversineKm(t *testing.T) {
	// Berlin to Hamburg is roughly 255 km.
	d := HaversineKm(52.5200, 13.4050, 53.5511, 9.9937)
	assert.InDelta(t, 255, d, 10)

	assert.InDelta(t, 0, HaversineKm(48.1, 11.6, 48.1, 11.6), 0.001)
}

func TestParseExcludeSet(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	ids := ParseExcludeSet(fmt.Sprintf("%s, %s", a, b))
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	assert.Nil(t, ParseExcludeSet(""))
	assert.Equal(t, []uuid.UUID{a}, ParseExcludeSet(fmt.Sprintf("not-a-uuid,%s", a)))
}
