// Package fallback derives deterministic replacement predictions for records
// flagged as sentinel placeholders. Outputs are synthetic stand-ins pending a
// real prediction; they claim no predictive accuracy, only non-degeneracy.
package fallback

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/pennant-analytics/consensus-cli/internal/quality"
	"github.com/pennant-analytics/consensus-cli/internal/team"
)

// typicalScores holds historically-typical MLB final score pairs. Drawing
// from this table keeps aggregate distributions realistic instead of uniform.
var typicalScores = [][2]float64{
	{2, 1}, {3, 2}, {4, 3}, {5, 4}, {6, 5}, {7, 6},
	{1, 0}, {2, 0}, {3, 1}, {4, 2}, {5, 3}, {6, 4},
	{3, 3}, {4, 4}, {5, 5}, {2, 2}, {1, 1},
	{8, 7}, {9, 8}, {10, 9}, {7, 5}, {8, 6}, {9, 7},
	{6, 2}, {7, 3}, {8, 4}, {9, 5}, {10, 6},
}

// logisticScale controls how fast the win probability saturates with the
// predicted score differential.
const logisticScale = 0.6

// Prediction is a regenerated set of numeric fields for one matchup.
type Prediction struct {
	Away     float64
	Home     float64
	Total    float64
	AwayProb float64
	HomeProb float64
}

// Seed derives a stable seed from the canonical matchup and date, matching
// the historical md5-prefix convention so regenerated values line up with
// data already in old caches.
func Seed(key team.MatchupKey) int64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s", key.Away, key.Home, key.Date)))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// Generate produces replacement values for a matchup. Calls with the same
// key are bit-identical. The result never equals a registered sentinel pair.
func Generate(key team.MatchupKey) Prediction {
	rng := rand.New(rand.NewSource(Seed(key)))

	base := typicalScores[rng.Intn(len(typicalScores))]
	away := round1(math.Max(0.5, base[0]+rng.Float64()-0.5))
	home := round1(math.Max(0.5, base[1]+rng.Float64()-0.5))

	// A rounded draw can land exactly on a sentinel; nudge deterministically.
	for quality.IsSentinelPair(away, home) {
		away = round1(away + 0.1)
	}

	diff := away - home
	awayProb := clamp(1/(1+math.Exp(-logisticScale*diff)), 0.1, 0.9)

	return Prediction{
		Away:     away,
		Home:     home,
		Total:    round1(away + home),
		AwayProb: round3(awayProb),
		HomeProb: round3(1 - awayProb),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
