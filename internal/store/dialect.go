package store

import (
	"strconv"
	"strings"
)

type dialect struct {
	name   string
	driver string
	schema []string
	// rebind rewrites ? placeholders into the driver's native form
	rebind func(string) string
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite3",
	rebind: func(q string) string { return q },
	schema: []string{
		`CREATE TABLE IF NOT EXISTS competitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			product_url TEXT NOT NULL,
			css_selector TEXT NOT NULL,
			internal_product TEXT NOT NULL,
			alert_threshold REAL NOT NULL DEFAULT 10,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			last_success_at DATETIME,
			last_error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			competitor_id INTEGER NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			price REAL NOT NULL,
			scraped_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			competitor_id INTEGER NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			old_price REAL NOT NULL,
			new_price REAL NOT NULL,
			percent_change REAL NOT NULL,
			created_at DATETIME NOT NULL,
			dismissed BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS our_prices (
			product_name TEXT PRIMARY KEY,
			price REAL NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scrape_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			competitor_id INTEGER NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			price REAL,
			error_message TEXT NOT NULL DEFAULT '',
			scraped_at DATETIME NOT NULL
		)`,
	},
}

var postgresDialect = dialect{
	name:   "postgres",
	driver: "pgx",
	rebind: rebindDollar,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS competitors (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			product_url TEXT NOT NULL,
			css_selector TEXT NOT NULL,
			internal_product TEXT NOT NULL,
			alert_threshold DOUBLE PRECISION NOT NULL DEFAULT 10,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_success_at TIMESTAMPTZ,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			competitor_id BIGINT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			competitor_id BIGINT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			product_name TEXT NOT NULL,
			old_price DOUBLE PRECISION NOT NULL,
			new_price DOUBLE PRECISION NOT NULL,
			percent_change DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			dismissed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS our_prices (
			product_name TEXT PRIMARY KEY,
			price DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scrape_logs (
			id BIGSERIAL PRIMARY KEY,
			competitor_id BIGINT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			price DOUBLE PRECISION,
			error_message TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
	},
}

var commonIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_price_history_competitor ON price_history(competitor_id, product_name, scraped_at)`,
	`CREATE INDEX IF NOT EXISTS idx_scrape_logs_competitor ON scrape_logs(competitor_id, scraped_at)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_dismissed ON alerts(dismissed, created_at)`,
}

func rebindDollar(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
