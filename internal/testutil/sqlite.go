// Package testutil provides an in-memory database mirroring the PostgreSQL migrations for repository tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Schema is the SQLite rendition of migrations/*.up.sql.
var Schema = []string{
	`CREATE TABLE securities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		sector TEXT,
		keywords TEXT,
		is_active BOOLEAN DEFAULT 1,
		created_at DATETIME
	)`,
	`CREATE TABLE news_articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT,
		title TEXT NOT NULL,
		content TEXT,
		url TEXT NOT NULL UNIQUE,
		published_at DATETIME,
		scraped_at DATETIME NOT NULL,
		processed BOOLEAN DEFAULT 0
	)`,
	`CREATE TABLE sentiment_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_id INTEGER NOT NULL REFERENCES news_articles(id) ON DELETE CASCADE,
		security_id INTEGER NOT NULL,
		sentiment TEXT NOT NULL,
		confidence REAL NOT NULL,
		raw_score REAL NOT NULL,
		analyzed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE daily_sentiment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		security_id INTEGER NOT NULL,
		date DATE NOT NULL,
		avg_sentiment REAL,
		weighted_sentiment REAL,
		article_count INTEGER,
		positive_count INTEGER,
		negative_count INTEGER,
		neutral_count INTEGER,
		created_at DATETIME,
		UNIQUE (security_id, date)
	)`,
	`CREATE TABLE portfolio_holdings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		security_id INTEGER NOT NULL,
		shares REAL NOT NULL,
		current_value REAL NOT NULL,
		weight REAL NOT NULL,
		sentiment_score REAL,
		updated_at DATETIME,
		UNIQUE (user_id, security_id)
	)`,
	`CREATE TABLE transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		security_id INTEGER NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
		shares REAL NOT NULL,
		price NUMERIC NOT NULL,
		total_value NUMERIC NOT NULL,
		reason TEXT,
		executed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE backtest_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		name TEXT,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		initial_capital REAL NOT NULL,
		final_value REAL,
		total_return REAL,
		cagr REAL,
		sharpe_ratio REAL,
		max_drawdown REAL,
		alpha REAL,
		months_simulated INTEGER,
		sentiment_data_used BOOLEAN,
		data_points INTEGER,
		config TEXT,
		equity_curve TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL,
		payload TEXT,
		retry_policy TEXT,
		timeout INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE task_schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		cron_expression TEXT NOT NULL,
		is_active BOOLEAN DEFAULT 1,
		next_execution DATETIME,
		last_execution DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE task_execution_histories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		schedule_id INTEGER,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		output TEXT,
		error_message TEXT
	)`,
}

// NewSQLiteDB opens a fresh shared-cache in-memory database named after the test and applies Schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	})
	require.NoError(t, err)
	for _, stmt := range Schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
