package forecast

import (
	"math"
	"math/rand"
)

type monthValue struct {
	i int
	v float64
}

// vary spreads avg over n forecast months. Every month but the last is
// scaled by a random factor in [1-variation, 1+variation] and dropped when
// it falls below eps. The last month absorbs the drift and the dropped
// months, so the posted values always sum to avg*n. An average below eps is
// too small to show and posts nothing.
func vary(avg float64, n int, rng *rand.Rand, variation, eps float64) []monthValue {
	if n <= 0 || math.Abs(avg) < eps {
		return nil
	}
	out := make([]monthValue, 0, n)
	var drift float64
	for i := 0; i < n-1; i++ {
		v := avg
		if rng != nil {
			v = avg * (1 + (rng.Float64()*2-1)*variation)
		}
		if math.Abs(v) < eps {
			continue
		}
		drift += v - avg
		out = append(out, monthValue{i: i, v: v})
	}
	last := float64(n-len(out))*avg - drift
	if last != 0 {
		out = append(out, monthValue{i: n - 1, v: last})
	}
	return out
}
