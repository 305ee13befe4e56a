package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/politicianfinder/evalengine/internal/adapters/repository/migrations"
	"github.com/politicianfinder/evalengine/internal/domain/model"
	"github.com/politicianfinder/evalengine/pkg/logger"
	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultMaxOpenConns = 10

const evaluationColumns = `id, politician_id, evaluator, version, overall_score, criteria,
	summary, strengths, weaknesses, sources, created_at, updated_at`

// snapshotColumns lists evaluation_snapshots columns in scan order.
var snapshotColumns = func() []string { //nolint:gochecknoglobals // derived from fixed enumerations
	cols := []string{"politician_id", "snapshot_date", "evaluation_count", "avg_overall", "max_overall", "min_overall"}
	for _, ev := range model.Evaluators {
		cols = append(cols, string(ev)+"_score")
	}
	for _, c := range model.Criteria() {
		cols = append(cols, "avg_"+c.String())
	}
	return append(cols, "consensus_score")
}()

// SQLStore implements Store on database/sql for SQLite and Postgres.
type SQLStore struct {
	db           *sql.DB
	driver       string
	maxOpenConns int
	migrate      bool
	clock        func() time.Time
	logger       logger.Logger
}

var _ Store = (*SQLStore)(nil)

func driverName(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// Open connects to the database, applies the embedded migrations unless
// WithoutMigrations is given, and returns a ready store.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		driver:       driver,
		maxOpenConns: defaultMaxOpenConns,
		migrate:      true,
		clock:        time.Now,
		logger:       logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}

	if s.migrate {
		if err := Migrate(ctx, driver, dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s.db = db
	s.logger.Info(ctx, "store opened", logger.String("driver", driver), logger.Bool("migrated", s.migrate))
	return s, nil
}

// Migrate applies every pending up migration for driver on its own
// connection, which is closed before returning.
func Migrate(ctx context.Context, driver, dsn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := NewMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// NewMigrator opens a dedicated connection and returns a golang-migrate
// instance over the embedded migrations of driver. Closing the migrator
// closes the connection.
func NewMigrator(driver, dsn string) (*migrate.Migrate, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s for migration: %w", driver, err)
	}

	var instance database.Driver
	switch driver {
	case DriverSQLite:
		instance, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	case DriverPostgres:
		instance, err = pgmigrate.WithInstance(db, &pgmigrate.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	src, err := migrations.Source(driver)
	if err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, instance)
	if err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string { return s.driver }

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) q(query string) string { return rebind(s.driver, query) }

// observe records read latency and failures per operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

// Politicians

func scanPolitician(sc Scanner) (model.Politician, error) {
	var (
		p       model.Politician
		created int64
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Party, &p.Position, &created); err != nil {
		return model.Politician{}, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return p, nil
}

const politicianColumns = `id, name, party, position_title, created_at`

// Politician returns ErrNotFound for an unknown id.
func (s *SQLStore) Politician(ctx context.Context, id string) (p model.Politician, err error) {
	defer func(start time.Time) { observe("politician", start, err) }(time.Now())

	p, err = QueryOne(ctx, s.db, s.q(`SELECT `+politicianColumns+` FROM politicians WHERE id = ?`), []any{id}, scanPolitician)
	return p, MapError(err, ErrNotFound, ErrDuplicate)
}

// ListPoliticians returns every politician ordered by id.
func (s *SQLStore) ListPoliticians(ctx context.Context) (ps []model.Politician, err error) {
	defer func(start time.Time) { observe("list_politicians", start, err) }(time.Now())

	return QueryMany(ctx, s.db, `SELECT `+politicianColumns+` FROM politicians ORDER BY id`, nil, scanPolitician)
}

// UpsertPolitician inserts p or updates its display fields. CreatedAt is
// kept from the first insert.
func (s *SQLStore) UpsertPolitician(ctx context.Context, p model.Politician) (model.Politician, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clock()
	}
	return WithTx(ctx, s.db, func(tx *sql.Tx) (model.Politician, error) {
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO politicians (`+politicianColumns+`)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				party = excluded.party,
				position_title = excluded.position_title`),
			p.ID, p.Name, p.Party, p.Position, p.CreatedAt.UnixMilli())
		if err != nil {
			metrics.RecordStoreError("upsert_politician")
			return model.Politician{}, MapError(err, ErrNotFound, ErrDuplicate)
		}
		return QueryOne(ctx, tx, s.q(`SELECT `+politicianColumns+` FROM politicians WHERE id = ?`), []any{p.ID}, scanPolitician)
	})
}

// Evaluations

func scanEvaluation(sc Scanner) (model.Evaluation, error) {
	var (
		e                                       model.Evaluation
		id, evaluator                           string
		criteria, strengths, weaknesses, source string
		created, updated                        int64
	)
	if err := sc.Scan(&id, &e.PoliticianID, &evaluator, &e.Version, &e.OverallScore, &criteria,
		&e.Summary, &strengths, &weaknesses, &source, &created, &updated); err != nil {
		return model.Evaluation{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("evaluation id %q: %w", id, err)
	}
	e.ID = parsed
	e.Evaluator = model.Evaluator(evaluator)
	if err := json.Unmarshal([]byte(criteria), &e.Criteria); err != nil {
		return model.Evaluation{}, fmt.Errorf("evaluation %s criteria: %w", id, err)
	}
	for dst, raw := range map[*[]string]string{&e.Strengths: strengths, &e.Weaknesses: weaknesses, &e.Sources: source} {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return model.Evaluation{}, fmt.Errorf("evaluation %s lists: %w", id, err)
		}
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

// UpsertEvaluation runs UPDATE on the (politician, evaluator, version) key
// and INSERTs only when no row matched, inside one transaction. An update
// keeps the stored id and CreatedAt.
func (s *SQLStore) UpsertEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, bool, error) {
	if !e.Evaluator.Valid() {
		return model.Evaluation{}, false, fmt.Errorf("%w: %q", model.ErrUnknownEvaluator, e.Evaluator)
	}

	criteria, err := json.Marshal(e.Criteria)
	if err != nil {
		return model.Evaluation{}, false, fmt.Errorf("encode criteria: %w", err)
	}
	var lists [3]string
	for i, l := range [][]string{e.Strengths, e.Weaknesses, e.Sources} {
		if lists[i], err = encodeList(l); err != nil {
			return model.Evaluation{}, false, fmt.Errorf("encode lists: %w", err)
		}
	}

	now := s.clock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	start := time.Now()
	type outcome struct {
		eval     model.Evaluation
		inserted bool
	}
	res, err := WithTx(ctx, s.db, func(tx *sql.Tx) (outcome, error) {
		upd, err := tx.ExecContext(ctx, s.q(`UPDATE evaluations SET
				overall_score = ?, criteria = ?, summary = ?,
				strengths = ?, weaknesses = ?, sources = ?, updated_at = ?
			WHERE politician_id = ? AND evaluator = ? AND version = ?`),
			e.OverallScore, string(criteria), e.Summary, lists[0], lists[1], lists[2], now.UnixMilli(),
			e.PoliticianID, string(e.Evaluator), e.Version)
		if err != nil {
			return outcome{}, err
		}
		n, err := upd.RowsAffected()
		if err != nil {
			return outcome{}, err
		}

		inserted := n == 0
		if inserted {
			_, err = tx.ExecContext(ctx, s.q(`INSERT INTO evaluations (`+evaluationColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				e.ID.String(), e.PoliticianID, string(e.Evaluator), e.Version, e.OverallScore, string(criteria),
				e.Summary, lists[0], lists[1], lists[2], e.CreatedAt.UnixMilli(), now.UnixMilli())
			if err != nil {
				return outcome{}, err
			}
		}

		stored, err := QueryOne(ctx, tx, s.q(`SELECT `+evaluationColumns+` FROM evaluations
			WHERE politician_id = ? AND evaluator = ? AND version = ?
			ORDER BY created_at DESC, id DESC LIMIT 1`),
			[]any{e.PoliticianID, string(e.Evaluator), e.Version}, scanEvaluation)
		if err != nil {
			return outcome{}, err
		}
		return outcome{eval: stored, inserted: inserted}, nil
	})
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError("upsert_evaluation")
		return model.Evaluation{}, false, MapError(err, ErrNotFound, ErrDuplicate)
	}
	return res.eval, res.inserted, nil
}

// LatestEvaluations returns up to limit evaluations, newest first.
func (s *SQLStore) LatestEvaluations(ctx context.Context, politicianID string, limit int) (es []model.Evaluation, err error) {
	defer func(start time.Time) { observe("latest_evaluations", start, err) }(time.Now())

	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return QueryMany(ctx, s.db, s.q(`SELECT `+evaluationColumns+` FROM evaluations
		WHERE politician_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), []any{politicianID, limit}, scanEvaluation)
}

// LatestPerEvaluator returns the newest evaluation of each evaluator,
// ordered by evaluator name.
func (s *SQLStore) LatestPerEvaluator(ctx context.Context, politicianID string) (es []model.Evaluation, err error) {
	defer func(start time.Time) { observe("latest_per_evaluator", start, err) }(time.Now())

	return QueryMany(ctx, s.db, s.q(`SELECT `+evaluationColumns+` FROM (
			SELECT `+evaluationColumns+`,
				ROW_NUMBER() OVER (
					PARTITION BY evaluator
					ORDER BY created_at DESC, updated_at DESC, version DESC
				) AS rn
			FROM evaluations
			WHERE politician_id = ?
		) ranked
		WHERE rn = 1
		ORDER BY evaluator`), []any{politicianID}, scanEvaluation)
}

// ListEvaluationsInRange returns evaluations created in [from, to), oldest first.
func (s *SQLStore) ListEvaluationsInRange(ctx context.Context, politicianID string, from, to time.Time) (es []model.Evaluation, err error) {
	defer func(start time.Time) { observe("evaluations_in_range", start, err) }(time.Now())

	return QueryMany(ctx, s.db, s.q(`SELECT `+evaluationColumns+` FROM evaluations
		WHERE politician_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, id ASC`),
		[]any{politicianID, from.UnixMilli(), to.UnixMilli()}, scanEvaluation)
}

// CountEvaluations returns the number of stored evaluations.
func (s *SQLStore) CountEvaluations(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe("count_evaluations", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&n)
	return n, err
}

// Snapshots

func scanSnapshot(sc Scanner) (model.Snapshot, error) {
	var (
		snap    model.Snapshot
		evals   = make([]sql.NullInt64, len(model.Evaluators))
		targets = []any{&snap.PoliticianID, &snap.Date, &snap.EvaluationCount, &snap.AvgOverall, &snap.MaxOverall, &snap.MinOverall}
	)
	for i := range evals {
		targets = append(targets, &evals[i])
	}
	for i := range snap.CriterionAverages {
		targets = append(targets, &snap.CriterionAverages[i])
	}
	targets = append(targets, &snap.Score)
	if err := sc.Scan(targets...); err != nil {
		return model.Snapshot{}, err
	}

	snap.EvaluatorScores = make(map[model.Evaluator]*int, len(model.Evaluators))
	for i, ev := range model.Evaluators {
		if evals[i].Valid {
			v := int(evals[i].Int64)
			snap.EvaluatorScores[ev] = &v
		} else {
			snap.EvaluatorScores[ev] = nil
		}
	}
	return snap, nil
}

func snapshotArgs(snap *model.Snapshot) []any {
	args := []any{snap.PoliticianID, snap.Date, snap.EvaluationCount, snap.AvgOverall, snap.MaxOverall, snap.MinOverall}
	for _, ev := range model.Evaluators {
		if v := snap.EvaluatorScores[ev]; v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}
	for _, avg := range snap.CriterionAverages {
		args = append(args, avg)
	}
	return append(args, snap.Score)
}

var upsertSnapshotSQL = func() string { //nolint:gochecknoglobals // built once from snapshotColumns
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(snapshotColumns)), ", ")
	sets := make([]string, 0, len(snapshotColumns)-2)
	for _, c := range snapshotColumns[2:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return `INSERT INTO evaluation_snapshots (` + strings.Join(snapshotColumns, ", ") + `)
		VALUES (` + placeholders + `)
		ON CONFLICT (politician_id, snapshot_date) DO UPDATE SET ` + strings.Join(sets, ", ")
}()

// UpsertSnapshot writes snap, overwriting any row for (politician, date).
func (s *SQLStore) UpsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, s.q(upsertSnapshotSQL), snapshotArgs(&snap)...)
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError("upsert_snapshot")
		return fmt.Errorf("upsert snapshot %s/%s: %w", snap.PoliticianID, snap.Date, MapError(err, ErrNotFound, ErrDuplicate))
	}
	return nil
}

// Snapshot returns one snapshot or ErrNotFound.
func (s *SQLStore) Snapshot(ctx context.Context, politicianID, date string) (snap model.Snapshot, err error) {
	defer func(start time.Time) { observe("snapshot", start, err) }(time.Now())

	snap, err = QueryOne(ctx, s.db, s.q(`SELECT `+strings.Join(snapshotColumns, ", ")+` FROM evaluation_snapshots
		WHERE politician_id = ? AND snapshot_date = ?`), []any{politicianID, date}, scanSnapshot)
	return snap, MapError(err, ErrNotFound, ErrDuplicate)
}

// ListSnapshots returns snapshots with from <= date <= to, oldest first.
func (s *SQLStore) ListSnapshots(ctx context.Context, politicianID, from, to string) (snaps []model.Snapshot, err error) {
	defer func(start time.Time) { observe("list_snapshots", start, err) }(time.Now())

	query := `SELECT ` + strings.Join(snapshotColumns, ", ") + ` FROM evaluation_snapshots WHERE politician_id = ?`
	args := []any{politicianID}
	if from != "" {
		query += ` AND snapshot_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND snapshot_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY snapshot_date ASC`

	return QueryMany(ctx, s.db, s.q(query), args, scanSnapshot)
}
