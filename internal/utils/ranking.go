package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity     float64
	WeightSave  float64
	WeightReply float64
	ScaleFactor float64
}

var DefaultRank = RankConfig{
	Gravity:     1.5,
	WeightSave:  3.0,
	WeightReply: 2.0,
	ScaleFactor: 100.0,
}

// CalculateScore ranks a thread by its activity, decayed by age.
// A fresh thread with no activity scores 0.
func CalculateScore(created, now time.Time, replies, saves int64) float64 {
	hours := now.Sub(created).Hours()
	if hours < 0 {
		hours = 0
	}

	weighted := float64(replies)*DefaultRank.WeightReply + float64(saves)*DefaultRank.WeightSave
	if weighted < 0 {
		weighted = 0
	}

	numerator := math.Log10(weighted+1) * DefaultRank.ScaleFactor
	return numerator / math.Pow(hours+2, DefaultRank.Gravity)
}
