package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Options struct {
	Driver   string
	Path     string // SQLite database file
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DB wraps a connection pool together with the driver it was opened with,
// so repositories can pick the matching SQL dialect.
type DB struct {
	*sql.DB
	driver string
}

func NewConnection(opts Options) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch opts.Driver {
	case DriverSQLite:
		db, err = openSQLite(opts.Path)
	case DriverMySQL:
		db, err = openMySQL(opts)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: opts.Driver}, nil
}

func (db *DB) Driver() string {
	return db.driver
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required for sqlite")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	query := url.Values{}
	query.Add("_pragma", "busy_timeout(5000)")
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "foreign_keys(1)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY between concurrent source batches.
	db.SetMaxOpenConns(1)

	return db, nil
}

func openMySQL(opts Options) (*sql.DB, error) {
	if opts.Host == "" || opts.Name == "" {
		return nil, fmt.Errorf("database host and name are required for mysql")
	}

	config := mysql.NewConfig()
	config.User = opts.User
	config.Passwd = opts.Password
	config.Net = "tcp"
	config.Addr = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	config.DBName = opts.Name
	config.ParseTime = true
	config.Loc = time.UTC
	config.MultiStatements = true
	config.Collation = "utf8mb4_unicode_ci"

	db, err := sql.Open("mysql", config.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
