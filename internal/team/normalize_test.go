package team

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CanonicalPassThrough(t *testing.T) {
	assert.Equal(t, "Seattle Mariners", Normalize("Seattle Mariners"))
	assert.Equal(t, "Baltimore Orioles", Normalize("Baltimore Orioles"))
}

func TestNormalize_Underscores(t *testing.T) {
	assert.Equal(t, "Seattle Mariners", Normalize("Seattle_Mariners"))
	assert.Equal(t, "Baltimore Orioles", Normalize("Baltimore_Orioles"))
}

func TestNormalize_Whitespace(t *testing.T) {
	assert.Equal(t, "Seattle Mariners", Normalize("  Seattle   Mariners "))
}

func TestNormalize_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "Seattle Mariners", Normalize("seattle mariners"))
	assert.Equal(t, "New York Yankees", Normalize("NEW YORK YANKEES"))
}

func TestNormalize_Nicknames(t *testing.T) {
	assert.Equal(t, "Chicago Cubs", Normalize("Cubs"))
	assert.Equal(t, "Pittsburgh Pirates", Normalize("Pirates"))
	assert.Equal(t, "Seattle Mariners", Normalize("Mariners"))
}

func TestNormalize_Abbreviations(t *testing.T) {
	assert.Equal(t, "Seattle Mariners", Normalize("SEA"))
	assert.Equal(t, "New York Yankees", Normalize("NYY"))
	assert.Equal(t, "Chicago White Sox", Normalize("CWS"))
	assert.Equal(t, "Chicago White Sox", Normalize("CHW"))
}

func TestNormalize_AthleticsVariants(t *testing.T) {
	assert.Equal(t, "Oakland Athletics", Normalize("Athletics"))
	assert.Equal(t, "Oakland Athletics", Normalize("Oakland A's"))
	assert.Equal(t, "Oakland Athletics", Normalize("A's"))
	assert.Equal(t, "Oakland Athletics", Normalize("Oakland Athletics"))
}

func TestNormalize_HistoricalEras(t *testing.T) {
	assert.Equal(t, "Cleveland Guardians", Normalize("Cleveland Indians"))
	assert.Equal(t, "Miami Marlins", Normalize("Florida Marlins"))
	assert.Equal(t, "Washington Nationals", Normalize("Montreal Expos"))
	assert.Equal(t, "Tampa Bay Rays", Normalize("Tampa Bay Devil Rays"))
	assert.Equal(t, "St. Louis Cardinals", Normalize("St Louis Cardinals"))
}

func TestNormalize_UnknownPassThrough(t *testing.T) {
	got, mapped := Lookup("Tokyo Giants")
	assert.False(t, mapped)
	assert.Equal(t, "Tokyo Giants", got)

	// Unknown but internally-consistent identifiers still dedup against
	// themselves after surface cleanup.
	assert.Equal(t, Normalize("Tokyo_Giants"), Normalize("Tokyo  Giants"))
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"Seattle_Mariners", "Cubs", "sea", "Tokyo Giants", "A's"} {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "normalize(normalize(%q))", raw)
	}
}

func TestNormalize_Diacritics(t *testing.T) {
	assert.Equal(t, "Washington Nationals", Normalize("Montréal Expos"))
}

func TestRegisterAlias(t *testing.T) {
	RegisterAlias("Halos", "Los Angeles Angels")
	assert.Equal(t, "Los Angeles Angels", Normalize("Halos"))
}

func TestLoadAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Bronx Bombers: New York Yankees\n"), 0o600))

	n, err := LoadAliasFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "New York Yankees", Normalize("Bronx Bombers"))
}

func TestLoadAliasFile_Missing(t *testing.T) {
	_, err := LoadAliasFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
