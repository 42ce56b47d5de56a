package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pennant-analytics/consensus-cli/internal/db"
	"github.com/pennant-analytics/consensus-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgRecordColumns = `date, matchup, away_team_raw, home_team_raw, away_team, home_team,
	predicted_away, predicted_home, predicted_total, away_win_prob, home_win_prob,
	attributes, quality_tier, source, regenerated, version, ingested_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"get_record": `SELECT ` + pgRecordColumns + ` FROM records WHERE date = $1 AND matchup = $2`,
	"list_date":  `SELECT ` + pgRecordColumns + ` FROM records WHERE date = $1 ORDER BY matchup`,
	"set_meta":   `INSERT INTO store_metadata (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	date            TEXT NOT NULL,
	matchup         TEXT NOT NULL,
	away_team_raw   TEXT NOT NULL,
	home_team_raw   TEXT NOT NULL,
	away_team       TEXT NOT NULL,
	home_team       TEXT NOT NULL,
	predicted_away  DOUBLE PRECISION,
	predicted_home  DOUBLE PRECISION,
	predicted_total DOUBLE PRECISION,
	away_win_prob   DOUBLE PRECISION,
	home_win_prob   DOUBLE PRECISION,
	attributes      JSONB,
	quality_tier    TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	regenerated     BOOLEAN NOT NULL DEFAULT FALSE,
	version         INTEGER NOT NULL DEFAULT 1,
	ingested_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (date, matchup)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	label        TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_records (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	date        TEXT NOT NULL,
	matchup     TEXT NOT NULL,
	record      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS store_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
CREATE INDEX IF NOT EXISTS idx_snapshot_records_snapshot ON snapshot_records(snapshot_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, date, matchup string) (*model.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM records WHERE date = $1 AND matchup = $2`,
		date, matchup,
	)
	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get record")
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec model.Record, opts PutOptions) (PutResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin put")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM records WHERE date = $1 AND matchup = $2 FOR UPDATE`,
		rec.Date, rec.Matchup,
	)
	existing, err := scanPgRecord(row)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrap(err, "postgres: read existing record")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		existing = nil
	}

	final, result := resolvePut(existing, rec, opts)
	if result == PutRejectedLowerTier || result == PutUnchanged {
		return result, nil
	}

	attrsJSON, err := marshalAttrs(final.Attributes)
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO records (`+pgRecordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
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
		final.PredictedAway, final.PredictedHome, final.PredictedTotal,
		final.AwayWinProb, final.HomeWinProb,
		attrsJSON, string(final.Tier), final.Source, final.Regenerated,
		final.Version, final.IngestedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: upsert record")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO store_metadata (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		"last_merge_at", time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: set metadata")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit put")
	}
	return result, nil
}

func (s *PostgresStore) ListDate(ctx context.Context, date string) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRecordColumns+` FROM records WHERE date = $1 ORDER BY matchup`,
		date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list date")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list date iterate")
}

func (s *PostgresStore) Dates(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT date FROM records ORDER BY date`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dates")
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "postgres: scan date")
		}
		dates = append(dates, d)
	}
	return dates, eris.Wrap(rows.Err(), "postgres: list dates iterate")
}

func (s *PostgresStore) Snapshot(ctx context.Context, label string) (*SnapshotInfo, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `SELECT `+pgRecordColumns+` FROM records ORDER BY date, matchup`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot read")
	}
	var records []model.Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: snapshot scan")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "postgres: snapshot iterate")
	}
	rows.Close()

	info := &SnapshotInfo{
		ID:          uuid.New().String(),
		Label:       label,
		RecordCount: len(records),
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO snapshots (id, label, record_count, created_at) VALUES ($1, $2, $3, $4)`,
		info.ID, info.Label, info.RecordCount, info.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot insert")
	}

	copyRows := make([][]any, 0, len(records))
	for _, rec := range records {
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: snapshot marshal")
		}
		copyRows = append(copyRows, []any{info.ID, rec.Date, rec.Matchup, recJSON})
	}
	if _, err := db.CopyRows(ctx, tx, "snapshot_records",
		[]string{"snapshot_id", "date", "matchup", "record"}, copyRows); err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot copy")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO store_metadata (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		"last_snapshot_id", info.ID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot metadata")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: snapshot commit")
	}
	return info, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, record_count, created_at FROM snapshots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.RecordCount, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

func (s *PostgresStore) Metadata(ctx context.Context) (*Metadata, error) {
	meta := &Metadata{}

	row := s.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(DISTINCT date) FROM records`)
	if err := row.Scan(&meta.RecordCount, &meta.DateCount); err != nil {
		return nil, eris.Wrap(err, "postgres: metadata counts")
	}

	var lastMerge string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM store_metadata WHERE key = 'last_merge_at'`,
	).Scan(&lastMerge)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: metadata last merge")
	}
	if lastMerge != "" {
		if ts, perr := time.Parse(time.RFC3339, lastMerge); perr == nil {
			meta.LastMergeAt = &ts
		}
	}

	var lastSnap string
	err = s.pool.QueryRow(ctx,
		`SELECT value FROM store_metadata WHERE key = 'last_snapshot_id'`,
	).Scan(&lastSnap)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: metadata last snapshot")
	}
	meta.LastSnapshotID = lastSnap

	return meta, nil
}

func scanPgRecord(row pgx.Row) (*model.Record, error) {
	var (
		rec       model.Record
		attrsJSON []byte
		tier      string
	)
	err := row.Scan(
		&rec.Date, &rec.Matchup, &rec.AwayTeamRaw, &rec.HomeTeamRaw,
		&rec.AwayTeam, &rec.HomeTeam,
		&rec.PredictedAway, &rec.PredictedHome, &rec.PredictedTotal,
		&rec.AwayWinProb, &rec.HomeWinProb,
		&attrsJSON, &tier, &rec.Source, &rec.Regenerated, &rec.Version, &rec.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Tier = model.QualityTier(tier)
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &rec.Attributes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal attributes")
		}
	}
	return &rec, nil
}
