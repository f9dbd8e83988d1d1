package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"sjsage522/pricewatch/internal/models"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/pkg/errors"
)

// SQL is a Store backed by database/sql. The same statements serve SQLite
// and PostgreSQL; only placeholders and DDL differ.
type SQL struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

var _ Store = (*SQL)(nil)

// NewSQLite opens (creating if needed) a SQLite database at path.
// ":memory:" gives a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewStorage("create database directory", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.NewStorage("open sqlite", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	return open(ctx, db, sqliteDialect)
}

// NewPostgres connects to PostgreSQL through the pgx driver.
func NewPostgres(ctx context.Context, databaseURL string) (*SQL, error) {
	db, err := sql.Open(postgresDialect.driver, databaseURL)
	if err != nil {
		return nil, errors.NewStorage("open postgres", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return open(ctx, db, postgresDialect)
}

func open(ctx context.Context, db *sql.DB, d dialect) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewStorage("connect "+d.name, err)
	}
	s := &SQL{db: db, d: d, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.ForStore().Info().Str("dialect", d.name).Msg("Database ready")
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	stmts := append(append([]string{}, s.d.schema...), commonIndexes...)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStorage("migrate schema", err)
		}
	}
	return nil
}

// Close closes the underlying pool
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, errors.NewStorage("exec", err)
	}
	return res, nil
}

func (s *SQL) insert(ctx context.Context, q string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.d.rebind(q+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, errors.NewStorage("insert", err)
	}
	return id, nil
}

func (s *SQL) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}

const competitorColumns = `id, name, product_url, css_selector, internal_product, alert_threshold,
	is_active, last_success_at, last_error, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCompetitor(row scanner) (*models.Competitor, error) {
	var c models.Competitor
	var lastSuccess sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.ProductURL, &c.CSSSelector, &c.InternalProduct, &c.AlertThreshold,
		&c.IsActive, &lastSuccess, &c.LastError, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastSuccess.Valid {
		t := lastSuccess.Time.UTC()
		c.LastSuccessAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *SQL) ListCompetitors(ctx context.Context, activeOnly bool) ([]models.Competitor, error) {
	q := `SELECT ` + competitorColumns + ` FROM competitors`
	var args []any
	if activeOnly {
		q += ` WHERE is_active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, errors.NewStorage("list competitors", err)
	}
	defer rows.Close()

	var out []models.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, errors.NewStorage("scan competitor", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *SQL) GetCompetitor(ctx context.Context, id int64) (*models.Competitor, error) {
	row := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT `+competitorColumns+` FROM competitors WHERE id = ?`), id)
	c, err := scanCompetitor(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound("competitor", id)
	}
	if err != nil {
		return nil, errors.NewStorage("get competitor", err)
	}
	return c, nil
}

func (s *SQL) FindCompetitorByURL(ctx context.Context, url string, excludeID int64) (*models.Competitor, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+competitorColumns+` FROM competitors WHERE product_url = ? AND id <> ? LIMIT 1`),
		url, excludeID)
	c, err := scanCompetitor(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorage("find competitor by url", err)
	}
	return c, nil
}

func (s *SQL) CreateCompetitor(ctx context.Context, c *models.Competitor) error {
	c.CreatedAt = s.stamp(c.CreatedAt)
	id, err := s.insert(ctx, `INSERT INTO competitors
		(name, product_url, css_selector, internal_product, alert_threshold, is_active, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.ProductURL, c.CSSSelector, c.InternalProduct, c.AlertThreshold, c.IsActive, c.LastError, c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *SQL) UpdateCompetitor(ctx context.Context, c *models.Competitor) error {
	res, err := s.exec(ctx, `UPDATE competitors
		SET name = ?, product_url = ?, css_selector = ?, internal_product = ?, alert_threshold = ?, is_active = ?
		WHERE id = ?`,
		c.Name, c.ProductURL, c.CSSSelector, c.InternalProduct, c.AlertThreshold, c.IsActive, c.ID)
	if err != nil {
		return err
	}
	return affected(res, "competitor", c.ID)
}

func affected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorage("rows affected", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func (s *SQL) DeleteCompetitor(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorage("begin delete", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM price_history WHERE competitor_id = ?`,
		`DELETE FROM scrape_logs WHERE competitor_id = ?`,
		`DELETE FROM alerts WHERE competitor_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.d.rebind(q), id); err != nil {
			return errors.NewStorage("delete dependents", err)
		}
	}
	res, err := tx.ExecContext(ctx, s.d.rebind(`DELETE FROM competitors WHERE id = ?`), id)
	if err != nil {
		return errors.NewStorage("delete competitor", err)
	}
	if err := affected(res, "competitor", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStorage("commit delete", err)
	}
	return nil
}

func (s *SQL) SetCompetitorStatus(ctx context.Context, id int64, lastSuccessAt *time.Time, lastError string) error {
	var (
		res sql.Result
		err error
	)
	if lastSuccessAt != nil {
		res, err = s.exec(ctx, `UPDATE competitors SET last_success_at = ?, last_error = ? WHERE id = ?`,
			lastSuccessAt.UTC(), lastError, id)
	} else {
		res, err = s.exec(ctx, `UPDATE competitors SET last_error = ? WHERE id = ?`, lastError, id)
	}
	if err != nil {
		return err
	}
	return affected(res, "competitor", id)
}

func (s *SQL) InsertPriceObservation(ctx context.Context, o *models.PriceObservation) error {
	o.ObservedAt = s.stamp(o.ObservedAt)
	id, err := s.insert(ctx, `INSERT INTO price_history (competitor_id, product_name, price, scraped_at) VALUES (?, ?, ?, ?)`,
		o.CompetitorID, o.Product, o.Price, o.ObservedAt)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (s *SQL) LatestPriceObservation(ctx context.Context, competitorID int64, product string) (*models.PriceObservation, error) {
	return s.PriceObservationOffsetBy(ctx, competitorID, product, 0)
}

func (s *SQL) PriceObservationOffsetBy(ctx context.Context, competitorID int64, product string, offset int) (*models.PriceObservation, error) {
	if offset < 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT id, competitor_id, product_name, price, scraped_at
		FROM price_history WHERE competitor_id = ? AND product_name = ?
		ORDER BY scraped_at DESC, id DESC LIMIT 1 OFFSET ?`), competitorID, product, offset)

	var o models.PriceObservation
	err := row.Scan(&o.ID, &o.CompetitorID, &o.Product, &o.Price, &o.ObservedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorage("get observation", err)
	}
	o.ObservedAt = o.ObservedAt.UTC()
	return &o, nil
}

func (s *SQL) PriceHistory(ctx context.Context, competitorID int64, since time.Time) ([]models.PriceObservation, error) {
	q := `SELECT id, competitor_id, product_name, price, scraped_at FROM price_history WHERE scraped_at >= ?`
	args := []any{since.UTC()}
	if competitorID != 0 {
		q += ` AND competitor_id = ?`
		args = append(args, competitorID)
	}
	q += ` ORDER BY scraped_at, id`

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, errors.NewStorage("price history", err)
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.ID, &o.CompetitorID, &o.Product, &o.Price, &o.ObservedAt); err != nil {
			return nil, errors.NewStorage("scan observation", err)
		}
		o.ObservedAt = o.ObservedAt.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQL) InsertScrapeLog(ctx context.Context, e *models.ScrapeLogEntry) error {
	e.At = s.stamp(e.At)
	var p sql.NullFloat64
	if e.Price != nil {
		p = sql.NullFloat64{Float64: *e.Price, Valid: true}
	}
	id, err := s.insert(ctx, `INSERT INTO scrape_logs (competitor_id, status, price, error_message, scraped_at) VALUES (?, ?, ?, ?, ?)`,
		e.CompetitorID, string(e.Outcome), p, e.ErrorMessage, e.At)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *SQL) queryLogs(ctx context.Context, competitorID int64, limit int) ([]models.ScrapeLogEntry, error) {
	q := `SELECT l.id, l.competitor_id, c.name, l.status, l.price, l.error_message, l.scraped_at
		FROM scrape_logs l JOIN competitors c ON c.id = l.competitor_id`
	var args []any
	if competitorID != 0 {
		q += ` WHERE l.competitor_id = ?`
		args = append(args, competitorID)
	}
	q += ` ORDER BY l.scraped_at DESC, l.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, errors.NewStorage("list scrape logs", err)
	}
	defer rows.Close()

	var out []models.ScrapeLogEntry
	for rows.Next() {
		var (
			e       models.ScrapeLogEntry
			outcome string
			p       sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.CompetitorID, &e.CompetitorName, &outcome, &p, &e.ErrorMessage, &e.At); err != nil {
			return nil, errors.NewStorage("scan scrape log", err)
		}
		e.Outcome = models.Outcome(outcome)
		if p.Valid {
			e.Price = models.PriceOf(p.Float64)
		}
		e.At = e.At.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQL) ListScrapeLogs(ctx context.Context, competitorID int64, limit int) ([]models.ScrapeLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.queryLogs(ctx, competitorID, limit)
}

func (s *SQL) LastScrapeLog(ctx context.Context, competitorID int64) (*models.ScrapeLogEntry, error) {
	logs, err := s.queryLogs(ctx, competitorID, 1)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

func (s *SQL) RecentFailureCount(ctx context.Context, competitorID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT COUNT(*) FROM scrape_logs WHERE competitor_id = ? AND status = ? AND scraped_at > ?`),
		competitorID, string(models.OutcomeFailed), since.UTC()).Scan(&n)
	if err != nil {
		return 0, errors.NewStorage("count failures", err)
	}
	return n, nil
}

func (s *SQL) ScrapeStats(ctx context.Context, since time.Time) (models.ScrapeStats, error) {
	var total, ok, failed, manual int
	err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'manual' THEN 1 ELSE 0 END), 0)
		FROM scrape_logs WHERE scraped_at > ?`), since.UTC()).Scan(&total, &ok, &failed, &manual)
	if err != nil {
		return models.ScrapeStats{}, errors.NewStorage("scrape stats", err)
	}
	return statsFrom(total, ok, failed, manual), nil
}

func (s *SQL) InsertAlert(ctx context.Context, a *models.Alert) error {
	a.CreatedAt = s.stamp(a.CreatedAt)
	id, err := s.insert(ctx, `INSERT INTO alerts
		(competitor_id, product_name, old_price, new_price, percent_change, created_at, dismissed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.CompetitorID, a.Product, a.OldPrice, a.NewPrice, a.PercentChange, a.CreatedAt, a.Dismissed)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *SQL) ListUndismissedAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	q := `SELECT a.id, a.competitor_id, c.name, a.product_name, a.old_price, a.new_price, a.percent_change, a.created_at, a.dismissed
		FROM alerts a JOIN competitors c ON c.id = a.competitor_id
		WHERE a.dismissed = ? ORDER BY a.created_at DESC, a.id DESC`
	args := []any{false}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, errors.NewStorage("list alerts", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.CompetitorID, &a.CompetitorName, &a.Product, &a.OldPrice, &a.NewPrice,
			&a.PercentChange, &a.CreatedAt, &a.Dismissed); err != nil {
			return nil, errors.NewStorage("scan alert", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQL) DismissAlert(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `UPDATE alerts SET dismissed = ? WHERE id = ?`, true, id)
	if err != nil {
		return err
	}
	return affected(res, "alert", id)
}

func (s *SQL) ListOurPrices(ctx context.Context) ([]models.OurPrice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_name, price, updated_at FROM our_prices ORDER BY product_name`)
	if err != nil {
		return nil, errors.NewStorage("list our prices", err)
	}
	defer rows.Close()

	var out []models.OurPrice
	for rows.Next() {
		var p models.OurPrice
		if err := rows.Scan(&p.Product, &p.Price, &p.UpdatedAt); err != nil {
			return nil, errors.NewStorage("scan our price", err)
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQL) UpsertOurPrice(ctx context.Context, product string, price float64) error {
	_, err := s.exec(ctx, `INSERT INTO our_prices (product_name, price, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (product_name) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		product, price, s.now().UTC())
	return err
}
