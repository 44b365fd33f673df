package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64
	WeightFavorite float64
	WeightComment  float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultRank = RankConfig{
	Gravity:        1.5,
	WeightFavorite: 3.0,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// CalculateScore produces the hot ranking value for a config. Views are
// deliberately excluded: their magnitude would drown out votes under the
// log smoothing below.
func CalculateScore(t time.Time, up, down, favorite, view, comment int) float64 {
	hours := time.Since(t).Hours()

	weightedSum := (float64(up) * DefaultRank.WeightUpvote) +
		(float64(comment) * DefaultRank.WeightComment) +
		(float64(favorite) * DefaultRank.WeightFavorite) -
		(float64(down) * DefaultRank.WeightDownvote)

	if weightedSum < 0 {
		weightedSum = 0
	}

	logScore := math.Log10(weightedSum + 1)
	numerator := logScore * DefaultRank.ScaleFactor

	decay := math.Pow(hours+2, DefaultRank.Gravity)

	return numerator / decay
}
