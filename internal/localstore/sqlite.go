package localstore

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inkwell-cms/inkwell/internal/util/compression"
)

// SQLite stores values in a single kv table, compressed with the
// configured algorithm. All operations are synchronous: when Set
// returns, the row is on disk.
type SQLite struct {
	path       string
	conn       *sql.DB
	compressor compression.Compressor
}

func NewSQLite(path string, compressor compression.Compressor) *SQLite {
	return &SQLite{
		path:       path,
		compressor: compressor,
	}
}

func (s *SQLite) Init() error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}

	res, err := s.conn.Exec(`
PRAGMA journal_mode = WAL;
PRAGMA synchronous = FULL;

CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return err
	}

	storeLogger.Info().Str("path", s.path).Any("db_result", res).Msg("Local store initialized")
	return nil
}

func (s *SQLite) Get(key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.compressor.Decompress(value)
}

func (s *SQLite) Set(key string, value []byte) error {
	compressed, err := s.compressor.Compress(value)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(`
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, compressed)
	return err
}

func (s *SQLite) Delete(key string) error {
	_, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
