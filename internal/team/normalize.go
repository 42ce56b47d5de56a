// Package team canonicalizes MLB team identifiers and builds matchup keys.
// Duplicate detection across generators reduces entirely to the correctness
// of this normalization.
package team

import (
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Canonical full names for all thirty clubs. Every canonical name maps to
// itself so normalization is idempotent.
var canonicalNames = []string{
	"Arizona Diamondbacks", "Atlanta Braves", "Baltimore Orioles",
	"Boston Red Sox", "Chicago Cubs", "Chicago White Sox",
	"Cincinnati Reds", "Cleveland Guardians", "Colorado Rockies",
	"Detroit Tigers", "Houston Astros", "Kansas City Royals",
	"Los Angeles Angels", "Los Angeles Dodgers", "Miami Marlins",
	"Milwaukee Brewers", "Minnesota Twins", "New York Mets",
	"New York Yankees", "Oakland Athletics", "Philadelphia Phillies",
	"Pittsburgh Pirates", "San Diego Padres", "San Francisco Giants",
	"Seattle Mariners", "St. Louis Cardinals", "Tampa Bay Rays",
	"Texas Rangers", "Toronto Blue Jays", "Washington Nationals",
}

// aliasSeed maps known spellings, nicknames, abbreviations, and historical
// era names to canonical form. Additions only; removing an entry would break
// detection of historical data.
var aliasSeed = map[string]string{
	// Nicknames.
	"Diamondbacks": "Arizona Diamondbacks",
	"D-backs":      "Arizona Diamondbacks",
	"Dbacks":       "Arizona Diamondbacks",
	"Braves":       "Atlanta Braves",
	"Orioles":      "Baltimore Orioles",
	"Red Sox":      "Boston Red Sox",
	"Cubs":         "Chicago Cubs",
	"White Sox":    "Chicago White Sox",
	"Reds":         "Cincinnati Reds",
	"Guardians":    "Cleveland Guardians",
	"Rockies":      "Colorado Rockies",
	"Tigers":       "Detroit Tigers",
	"Astros":       "Houston Astros",
	"Royals":       "Kansas City Royals",
	"Angels":       "Los Angeles Angels",
	"Dodgers":      "Los Angeles Dodgers",
	"Marlins":      "Miami Marlins",
	"Brewers":      "Milwaukee Brewers",
	"Twins":        "Minnesota Twins",
	"Mets":         "New York Mets",
	"Yankees":      "New York Yankees",
	"Athletics":    "Oakland Athletics",
	"A's":          "Oakland Athletics",
	"Oakland A's":  "Oakland Athletics",
	"Phillies":     "Philadelphia Phillies",
	"Pirates":      "Pittsburgh Pirates",
	"Padres":       "San Diego Padres",
	"Giants":       "San Francisco Giants",
	"Mariners":     "Seattle Mariners",
	"Cardinals":    "St. Louis Cardinals",
	"Cards":        "St. Louis Cardinals",
	"Rays":         "Tampa Bay Rays",
	"Rangers":      "Texas Rangers",
	"Blue Jays":    "Toronto Blue Jays",
	"Nationals":    "Washington Nationals",
	"Nats":         "Washington Nationals",

	// Abbreviations.
	"ARI": "Arizona Diamondbacks",
	"ATL": "Atlanta Braves",
	"BAL": "Baltimore Orioles",
	"BOS": "Boston Red Sox",
	"CHC": "Chicago Cubs",
	"CWS": "Chicago White Sox",
	"CHW": "Chicago White Sox",
	"CIN": "Cincinnati Reds",
	"CLE": "Cleveland Guardians",
	"COL": "Colorado Rockies",
	"DET": "Detroit Tigers",
	"HOU": "Houston Astros",
	"KC":  "Kansas City Royals",
	"KCR": "Kansas City Royals",
	"LAA": "Los Angeles Angels",
	"LAD": "Los Angeles Dodgers",
	"MIA": "Miami Marlins",
	"MIL": "Milwaukee Brewers",
	"MIN": "Minnesota Twins",
	"NYM": "New York Mets",
	"NYY": "New York Yankees",
	"OAK": "Oakland Athletics",
	"PHI": "Philadelphia Phillies",
	"PIT": "Pittsburgh Pirates",
	"SD":  "San Diego Padres",
	"SDP": "San Diego Padres",
	"SF":  "San Francisco Giants",
	"SFG": "San Francisco Giants",
	"SEA": "Seattle Mariners",
	"STL": "St. Louis Cardinals",
	"TB":  "Tampa Bay Rays",
	"TBR": "Tampa Bay Rays",
	"TEX": "Texas Rangers",
	"TOR": "Toronto Blue Jays",
	"WSH": "Washington Nationals",
	"WSN": "Washington Nationals",

	// Historical era names.
	"Cleveland Indians":     "Cleveland Guardians",
	"Florida Marlins":       "Miami Marlins",
	"Anaheim Angels":        "Los Angeles Angels",
	"California Angels":     "Los Angeles Angels",
	"Montreal Expos":        "Washington Nationals",
	"Expos":                 "Washington Nationals",
	"Tampa Bay Devil Rays":  "Tampa Bay Rays",
	"Devil Rays":            "Tampa Bay Rays",
	"St Louis Cardinals":    "St. Louis Cardinals",
	"Saint Louis Cardinals": "St. Louis Cardinals",
}

var (
	aliasMu    sync.RWMutex
	aliases    map[string]string
	aliasFold  map[string]string
	multiSpace = regexp.MustCompile(`\s{2,}`)
)

func init() {
	aliases = make(map[string]string, len(aliasSeed)+len(canonicalNames))
	aliasFold = make(map[string]string, len(aliasSeed)+len(canonicalNames))
	for _, name := range canonicalNames {
		register(name, name)
	}
	for alias, canonical := range aliasSeed {
		register(alias, canonical)
	}
}

func register(alias, canonical string) {
	cleaned := Clean(alias)
	aliases[cleaned] = canonical
	aliasFold[strings.ToLower(cleaned)] = canonical
}

// RegisterAlias adds an alias to the table at runtime. Additive only.
func RegisterAlias(alias, canonical string) {
	aliasMu.Lock()
	defer aliasMu.Unlock()
	register(alias, canonical)
}

// LoadAliasFile merges an operator-supplied alias → canonical overlay into
// the table. The file is a flat YAML mapping.
func LoadAliasFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "team: read alias file %s", path)
	}
	var overlay map[string]string
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return 0, eris.Wrapf(err, "team: parse alias file %s", path)
	}
	for alias, canonical := range overlay {
		RegisterAlias(alias, canonical)
	}
	return len(overlay), nil
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Clean applies the surface-format fixes shared by lookup and pass-through:
// trim, underscores to spaces, collapsed whitespace, folded diacritics.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "_", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	if folded, _, err := transform.String(diacriticStripper, s); err == nil {
		s = folded
	}
	return strings.TrimSpace(s)
}

// Lookup resolves a raw identifier to canonical form. The second return is
// false when no alias matched and the cleaned input passed through.
func Lookup(raw string) (string, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", false
	}
	aliasMu.RLock()
	defer aliasMu.RUnlock()
	if canonical, ok := aliases[cleaned]; ok {
		return canonical, true
	}
	if canonical, ok := aliasFold[strings.ToLower(cleaned)]; ok {
		return canonical, true
	}
	return cleaned, false
}

// Normalize maps a raw team identifier to canonical form. Total and
// idempotent: unknown inputs pass through cleaned but otherwise unchanged so
// an internally-consistent identifier still deduplicates against itself.
func Normalize(raw string) string {
	canonical, _ := Lookup(raw)
	return canonical
}
