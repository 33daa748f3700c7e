package rules

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"

	_ "modernc.org/sqlite"
)

// SQLStore reads rules from a SQLite database with the legacy detector schema:
//
//	token(token TEXT, len INTEGER, level INTEGER)
//	preg(Preg TEXT, level INTEGER)
type SQLStore struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens an existing database. A missing file is an error rather
// than an implicitly created empty database.
func OpenSQLite(path string) (*SQLStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Source: path, Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &LoadError{Source: path, Op: "open", Err: err}
	}
	return &SQLStore{path: path, db: db}, nil
}

func (s *SQLStore) Name() string { return s.path }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Fingerprints(ctx context.Context) ([]FingerprintRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, len, level FROM token ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FingerprintRule
	for rows.Next() {
		var (
			digest      string
			length, lvl int64
		)
		if err := rows.Scan(&digest, &length, &lvl); err != nil {
			return nil, err
		}
		if length < 0 || length > math.MaxUint32 {
			return nil, fmt.Errorf("token %s: length %d out of range", digest, length)
		}
		sev, err := severity(lvl)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", digest, err)
		}
		out = append(out, FingerprintRule{Digest: digest, Length: uint32(length), Severity: sev})
	}
	return out, rows.Err()
}

func (s *SQLStore) Patterns(ctx context.Context) ([]PatternRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT Preg, level FROM preg ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatternRule
	for rows.Next() {
		var (
			pattern string
			lvl     int64
		)
		if err := rows.Scan(&pattern, &lvl); err != nil {
			return nil, err
		}
		sev, err := severity(lvl)
		if err != nil {
			return nil, fmt.Errorf("preg %q: %w", pattern, err)
		}
		out = append(out, PatternRule{Pattern: pattern, Severity: sev})
	}
	return out, rows.Err()
}

func severity(v int64) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("level %d out of range", v)
	}
	return int32(v), nil
}
