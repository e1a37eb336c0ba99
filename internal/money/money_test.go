package money

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		value  float64
		places int32
		want   float64
	}{
		{"half up", 2.675, 2, 2.68},
		{"half away from zero negative", -2.675, 2, -2.68},
		{"already rounded", 180, 2, 180},
		{"one place", 83.35, 1, 83.4},
		{"three places", 1.4049999, 3, 1.405},
		{"product drift", 1.1 * 0.92, 3, 1.012},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Round(tt.value, tt.places))
		})
	}
}

func TestSumIsOrderIndependent(t *testing.T) {
	vals := []float64{0.1, 0.2, 0.3, 1234.56, 7.89, 0.01, 99.99}
	want := Sum(vals...)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(vals), func(a, b int) { vals[a], vals[b] = vals[b], vals[a] })
		assert.Equal(t, want, Sum(vals...))
	}
	assert.Equal(t, 1343.05, want)
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	for i := 0; i < 10; i++ {
		acc.Add(0.1)
	}
	assert.Equal(t, 1.0, acc.Total())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50.0, Percent(1000, 5))
	assert.Equal(t, 37.5, Percent(2500, 1.5))
	assert.Equal(t, 0.01, Percent(0.3, 3))
	assert.Equal(t, 0.0, Percent(0, 5))
}

func TestScale(t *testing.T) {
	assert.Equal(t, 180.0, Scale(1000, 0.18))
	assert.Equal(t, 1400.0, Scale(1000, 1.4))
	assert.Equal(t, 82.8, Scale(460, 0.18))
	assert.Equal(t, 0.01, Scale(0.05, 0.1))
}
