package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pennant-analytics/consensus-cli/internal/quality"
	"github.com/pennant-analytics/consensus-cli/internal/team"
)

func TestGenerate_Deterministic(t *testing.T) {
	key := team.BuildKey("2025-08-14", "Seattle Mariners", "Baltimore Orioles")
	a := Generate(key)
	b := Generate(key)
	assert.Equal(t, a, b)
}

func TestGenerate_SeedStableAcrossSpellings(t *testing.T) {
	a := Generate(team.BuildKey("2025-08-14", "Seattle_Mariners", "Baltimore_Orioles"))
	b := Generate(team.BuildKey("2025-08-14", "Seattle Mariners", "Baltimore Orioles"))
	assert.Equal(t, a, b)
}

func TestGenerate_DifferentKeysDiffer(t *testing.T) {
	a := Generate(team.BuildKey("2025-08-14", "Cubs", "Pirates"))
	b := Generate(team.BuildKey("2025-08-15", "Cubs", "Pirates"))
	assert.NotEqual(t, a, b)
}

func TestGenerate_NeverSentinel(t *testing.T) {
	dates := []string{"2025-08-10", "2025-08-11", "2025-08-12", "2025-08-13", "2025-08-14"}
	teams := [][2]string{
		{"Cubs", "Pirates"}, {"Mariners", "Orioles"}, {"Yankees", "Red Sox"},
		{"Dodgers", "Giants"}, {"Braves", "Mets"},
	}
	for _, date := range dates {
		for _, pair := range teams {
			p := Generate(team.BuildKey(date, pair[0], pair[1]))
			assert.False(t, quality.IsSentinelPair(p.Away, p.Home),
				"sentinel pair generated for %s %s@%s", date, pair[0], pair[1])
		}
	}
}

func TestGenerate_ProbabilityBounds(t *testing.T) {
	for _, date := range []string{"2025-07-01", "2025-07-02", "2025-07-03"} {
		p := Generate(team.BuildKey(date, "Astros", "Rangers"))
		assert.GreaterOrEqual(t, p.AwayProb, 0.1)
		assert.LessOrEqual(t, p.AwayProb, 0.9)
		assert.InDelta(t, 1.0, p.AwayProb+p.HomeProb, 1e-3)
	}
}

func TestGenerate_ScoresPositive(t *testing.T) {
	p := Generate(team.BuildKey("2025-08-14", "Twins", "Royals"))
	assert.GreaterOrEqual(t, p.Away, 0.5)
	assert.GreaterOrEqual(t, p.Home, 0.5)
	assert.InDelta(t, p.Away+p.Home, p.Total, 0.05)
}

func TestSeed_Stable(t *testing.T) {
	key := team.BuildKey("2025-08-14", "Cubs", "Pirates")
	assert.Equal(t, Seed(key), Seed(key))
}
