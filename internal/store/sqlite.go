package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	date            TEXT NOT NULL,
	matchup         TEXT NOT NULL,
	away_team_raw   TEXT NOT NULL,
	home_team_raw   TEXT NOT NULL,
	away_team       TEXT NOT NULL,
	home_team       TEXT NOT NULL,
	predicted_away  REAL,
	predicted_home  REAL,
	predicted_total REAL,
	away_win_prob   REAL,
	home_win_prob   REAL,
	attributes      TEXT,
	quality_tier    TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	regenerated     INTEGER NOT NULL DEFAULT 0,
	version         INTEGER NOT NULL DEFAULT 1,
	ingested_at     DATETIME NOT NULL,
	PRIMARY KEY (date, matchup)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	label        TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_records (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	date        TEXT NOT NULL,
	matchup     TEXT NOT NULL,
	record      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS store_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
CREATE INDEX IF NOT EXISTS idx_snapshot_records_snapshot ON snapshot_records(snapshot_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recordColumns = `date, matchup, away_team_raw, home_team_raw, away_team, home_team,
	predicted_away, predicted_home, predicted_total, away_win_prob, home_win_prob,
	attributes, quality_tier, source, regenerated, version, ingested_at`

func (s *SQLiteStore) Get(ctx context.Context, date, matchup string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE date = ? AND matchup = ?`,
		date, matchup,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get record")
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec model.Record, opts PutOptions) (PutResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin put")
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE date = ? AND matchup = ?`,
		rec.Date, rec.Matchup,
	)
	existing, err := scanRecord(row)
	if err != nil && err != sql.ErrNoRows {
		return "", eris.Wrap(err, "sqlite: read existing record")
	}

	final, result := resolvePut(existing, rec, opts)
	if result == PutRejectedLowerTier || result == PutUnchanged {
		return result, nil
	}

	attrsJSON, err := marshalAttrs(final.Attributes)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (date, matchup) DO UPDATE SET
			away_team_raw = excluded.away_team_raw,
			home_team_raw = excluded.home_team_raw,
			away_team = excluded.away_team,
			home_team = excluded.home_team,
			predicted_away = excluded.predicted_away,
			predicted_home = excluded.predicted_home,
			predicted_total = excluded.predicted_total,
			away_win_prob = excluded.away_win_prob,
			home_win_prob = excluded.home_win_prob,
			attributes = excluded.attributes,
			quality_tier = excluded.quality_tier,
			source = excluded.source,
			regenerated = excluded.regenerated,
			version = excluded.version,
			ingested_at = excluded.ingested_at`,
		final.Date, final.Matchup, final.AwayTeamRaw, final.HomeTeamRaw,
		final.AwayTeam, final.HomeTeam,
		nullFloat(final.PredictedAway), nullFloat(final.PredictedHome),
		nullFloat(final.PredictedTotal), nullFloat(final.AwayWinProb),
		nullFloat(final.HomeWinProb), attrsJSON, string(final.Tier),
		final.Source, final.Regenerated, final.Version, final.IngestedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: upsert record")
	}

	if err := setMetaTx(ctx, tx, "last_merge_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit put")
	}
	return result, nil
}

func (s *SQLiteStore) ListDate(ctx context.Context, date string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE date = ? ORDER BY matchup`,
		date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list date")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list date iterate")
}

func (s *SQLiteStore) Dates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date FROM records ORDER BY date`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dates")
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan date")
		}
		dates = append(dates, d)
	}
	return dates, eris.Wrap(rows.Err(), "sqlite: list dates iterate")
}

func (s *SQLiteStore) Snapshot(ctx context.Context, label string) (*SnapshotInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT `+recordColumns+` FROM records ORDER BY date, matchup`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}
	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: snapshot")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}
	rows.Close()

	info := &SnapshotInfo{
		ID:          uuid.New().String(),
		Label:       label,
		RecordCount: len(records),
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, label, record_count, created_at) VALUES (?, ?, ?, ?)`,
		info.ID, info.Label, info.RecordCount, info.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}

	for _, rec := range records {
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: snapshot")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_records (snapshot_id, date, matchup, record) VALUES (?, ?, ?, ?)`,
			info.ID, rec.Date, rec.Matchup, string(recJSON),
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: snapshot")
		}
	}

	if err := setMetaTx(ctx, tx, "last_snapshot_id", info.ID); err != nil {
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: snapshot")
	}
	return info, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, record_count, created_at FROM snapshots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.RecordCount, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) Metadata(ctx context.Context) (*Metadata, error) {
	meta := &Metadata{}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT date) FROM records`)
	if err := row.Scan(&meta.RecordCount, &meta.DateCount); err != nil {
		return nil, eris.Wrap(err, "sqlite: metadata counts")
	}

	var lastMerge sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_metadata WHERE key = 'last_merge_at'`,
	).Scan(&lastMerge)
	if err != nil && err != sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: metadata last merge")
	}
	if lastMerge.Valid {
		if ts, perr := time.Parse(time.RFC3339, lastMerge.String); perr == nil {
			meta.LastMergeAt = &ts
		}
	}

	var lastSnap sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM store_metadata WHERE key = 'last_snapshot_id'`,
	).Scan(&lastSnap)
	if err != nil && err != sql.ErrNoRows {
		return nil, eris.Wrap(err, "sqlite: metadata last snapshot")
	}
	if lastSnap.Valid {
		meta.LastSnapshotID = lastSnap.String
	}

	return meta, nil
}

// helpers

func setMetaTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO store_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return eris.Wrapf(err, "sqlite: set metadata %s", key)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func marshalAttrs(attrs map[string]any) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal attributes")
	}
	return string(data), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
	var (
		rec         model.Record
		away, home  sql.NullFloat64
		total       sql.NullFloat64
		awayP       sql.NullFloat64
		homeP       sql.NullFloat64
		attrsJSON   sql.NullString
		tier        string
		regenerated bool
	)
	err := row.Scan(
		&rec.Date, &rec.Matchup, &rec.AwayTeamRaw, &rec.HomeTeamRaw,
		&rec.AwayTeam, &rec.HomeTeam,
		&away, &home, &total, &awayP, &homeP,
		&attrsJSON, &tier, &rec.Source, &regenerated, &rec.Version, &rec.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Tier = model.QualityTier(tier)
	rec.Regenerated = regenerated
	rec.PredictedAway = floatFromNull(away)
	rec.PredictedHome = floatFromNull(home)
	rec.PredictedTotal = floatFromNull(total)
	rec.AwayWinProb = floatFromNull(awayP)
	rec.HomeWinProb = floatFromNull(homeP)

	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &rec.Attributes); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal attributes")
		}
	}
	return &rec, nil
}

func floatFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
