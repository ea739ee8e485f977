package migrations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	chstore "solana-staking-ledger/internal/storage/clickhouse"
)

// errUnterminatedString is returned for a schema file whose last quote never closes.
var errUnterminatedString = errors.New("unterminated string literal")

// RunClickhouseMigrations creates the analytics database named in dsn if it is
// missing, then creates the ledger event tables in it. The returned connection
// points at that database and is owned by the caller.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect to analytics database %s: %w", dbName, err)
	}

	for _, m := range files {
		stmts, err := splitStatements(m.sql)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("clickhouse schema %s: %w", m.name, err)
		}
		// one statement per Exec: the native protocol has no multi-statement mode
		for i, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("clickhouse schema %s statement %d: %w", m.name, i+1, err)
			}
		}
		log.Ctx(ctx).Debug().
			Str("file", m.name).
			Int("statements", len(stmts)).
			Msg("clickhouse schema applied")
	}

	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	conn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect to clickhouse server: %w", err)
	}
	defer conn.Close()

	if err := conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create analytics database %s: %w", dbName, err)
	}
	return nil
}

// splitStatements cuts a schema file into statements at top-level semicolons.
// Semicolons inside single-quoted literals, where a doubled quote is an
// escaped quote, are not separators. Text from -- to the end of the line is
// a comment and is dropped from the output.
func splitStatements(input string) ([]string, error) {
	var (
		stmts    []string
		cur      strings.Builder
		inString bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur.Reset()
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case inString:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(input) && input[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inString = false
				}
			}
		case ch == '\'':
			inString = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(input) && input[i+1] == '-':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inString {
		return nil, errUnterminatedString
	}
	flush()
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", errors.New("clickhouse dsn names no database")
	}
	return db, nil
}
