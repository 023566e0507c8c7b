package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/gh_release_notes/internal/config"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

type Storage struct {
	db     *sql.DB
	driver string
}

func NewStorage(cfg config.DBConfig) (*Storage, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "", "postgres":
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		driverName = "postgres"
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode)
	case "sqlite":
		driverName = "sqlite"
		dsn = cfg.Path
	default:
		return nil, fmt.Errorf("unknown db driver: %s", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driverName == "sqlite" {
		// sqlite 单写者
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, driver: driverName}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Driver 数据库驱动名
func (s *Storage) Driver() string {
	return s.driver
}

func (s *Storage) initSchema() error {
	documentType := "JSONB"
	if s.driver == "sqlite" {
		documentType = "TEXT"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS solver_results (
			document_id TEXT PRIMARY KEY,
			datetime TIMESTAMP,
			document ` + documentType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS solver_results_datetime_idx ON solver_results (datetime)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			start_date TEXT,
			end_date TEXT,
			status TEXT NOT NULL,
			documents INTEGER NOT NULL DEFAULT 0,
			entries INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS release_notes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			organization TEXT NOT NULL,
			repository TEXT NOT NULL,
			package_name TEXT NOT NULL,
			package_version TEXT NOT NULL,
			index_url TEXT NOT NULL,
			tag_version_prefix TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func rollback(tx *sql.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}

// sanitize 移除无效的 UTF-8 字符和 NULL 字节，PostgreSQL 文本字段不支持 NULL 字节
func sanitize(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r == utf8.RuneError {
				continue
			}
			v = append(v, r)
		}
		s = string(v)
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind 把 PostgreSQL 的 $N 占位符转换成 sqlite 的 ?，参数须按顺序出现
func (s *Storage) rebind(query string) string {
	if s.driver != "sqlite" {
		return query
	}
	return placeholderRe.ReplaceAllString(query, "?")
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
