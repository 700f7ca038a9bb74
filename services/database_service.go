package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"

	"dispatch-dashboard/config"

	_ "github.com/go-sql-driver/mysql"
)

// DatabaseService manages the MySQL connection pool for the remote
// store. The store is best-effort: an unreachable database is a
// degraded mode, not a startup failure.
type DatabaseService struct {
	db *sql.DB
}

// NewDatabaseService opens the connection pool and pings it with a
// bounded exponential backoff. When the ping deadline passes the
// service is still returned; callers fall back to cached data until
// the store comes back.
func NewDatabaseService(cfg *config.Config) (*DatabaseService, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	deadline := time.Now().Add(15 * time.Second)
	waitInterval := time.Second
	for {
		pingErr := db.Ping()
		if pingErr == nil {
			log.Infof("Database connection established to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
			break
		}
		if time.Now().After(deadline) {
			log.Warnf("Database unreachable, continuing in degraded mode: %v", pingErr)
			break
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, pingErr)
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	return &DatabaseService{db: db}, nil
}

// DB exposes the underlying pool to the table-level services.
func (s *DatabaseService) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *DatabaseService) Close() error {
	return s.db.Close()
}

// InitSchema creates the dashboard tables if they don't exist.
func InitSchema(db *sql.DB) error {
	log.Info("Initializing dispatch dashboard database schema...")

	eventsTableSQL := `
	CREATE TABLE IF NOT EXISTS events(
		id VARCHAR(32) NOT NULL,
		ts VARCHAR(32) NOT NULL,
		created_at VARCHAR(40) NOT NULL,
		status VARCHAR(16) NOT NULL,
		job_status VARCHAR(32),
		vendor VARCHAR(255),
		location VARCHAR(255),
		type VARCHAR(64),
		price DOUBLE DEFAULT 0,
		satisfaction VARCHAR(16),
		notes TEXT,
		review_notes TEXT,
		rating DOUBLE DEFAULT 0,
		total_estimate DOUBLE DEFAULT 0,
		hourly_rate DOUBLE DEFAULT 0,
		callout_fee DOUBLE DEFAULT 0,
		cost_context TEXT,
		PRIMARY KEY (id)
	)`

	if _, err := db.Exec(eventsTableSQL); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	notificationsTableSQL := `
	CREATE TABLE IF NOT EXISTS notifications(
		id VARCHAR(32) NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT,
		ts VARCHAR(40) NOT NULL,
		is_read BOOLEAN DEFAULT FALSE,
		type VARCHAR(16) NOT NULL,
		PRIMARY KEY (id)
	)`

	if _, err := db.Exec(notificationsTableSQL); err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}

	vendorsTableSQL := `
	CREATE TABLE IF NOT EXISTS vendors(
		id VARCHAR(32) NOT NULL,
		name VARCHAR(255) NOT NULL,
		location VARCHAR(255),
		address VARCHAR(255),
		phone VARCHAR(64),
		services TEXT,
		rating DOUBLE DEFAULT 0,
		status VARCHAR(8) DEFAULT 'ok',
		reliability INT DEFAULT 0,
		joined VARCHAR(16),
		PRIMARY KEY (id)
	)`

	if _, err := db.Exec(vendorsTableSQL); err != nil {
		return fmt.Errorf("failed to create vendors table: %w", err)
	}

	log.Info("Dispatch dashboard schema initialization completed")
	return nil
}
