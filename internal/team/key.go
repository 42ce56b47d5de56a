package team

import "fmt"

// MatchupKey identifies one scheduled contest: an event date plus the two
// canonical team names. Two raw records that normalize to the same pair on
// the same date always produce an identical key.
type MatchupKey struct {
	Date string
	Away string
	Home string
}

// BuildKey derives the canonical key for a matchup from raw identifiers.
func BuildKey(date, awayRaw, homeRaw string) MatchupKey {
	return MatchupKey{
		Date: date,
		Away: Normalize(awayRaw),
		Home: Normalize(homeRaw),
	}
}

// Matchup renders the key's matchup portion in the cache's historical
// "Away @ Home" form.
func (k MatchupKey) Matchup() string {
	return fmt.Sprintf("%s @ %s", k.Away, k.Home)
}

func (k MatchupKey) String() string {
	return fmt.Sprintf("%s %s", k.Date, k.Matchup())
}
