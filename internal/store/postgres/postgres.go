// Package postgres implements store.Store with raw parameterized SQL over a
// pgx connection pool.
//
// Links live in a shortlinks table keyed by a surrogate id; group names are
// interned through a shortlink_groups table whose rows are created lazily on
// first insert into a group.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
)

// Store is a PostgreSQL-backed short-link store.
type Store struct {
	pool *pgxpool.Pool
	clk  clock.Clock
}

// New creates a store over an externally owned connection pool.
func New(pool *pgxpool.Pool, clk clock.Clock) *Store {
	return &Store{pool: pool, clk: clk}
}

// Setup creates the schema if it does not exist.
func (s *Store) Setup(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS shortlink_groups (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS shortlinks (
			id BIGSERIAL PRIMARY KEY,
			group_id BIGINT NOT NULL REFERENCES shortlink_groups (id),
			code TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT,
			creator TEXT NOT NULL,
			owner TEXT NOT NULL,
			UNIQUE (group_id, code)
		)`,
		`CREATE INDEX IF NOT EXISTS shortlinks_group_owner_idx
			ON shortlinks (group_id, owner)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setup schema: %w", err)
		}
	}

	return nil
}

func (s *Store) Create(ctx context.Context, lnk link.ShortLink) (link.ShortLink, error) {
	groupID, err := s.internGroup(ctx, lnk.Group)
	if err != nil {
		return link.ShortLink{}, err
	}

	query := `
		INSERT INTO shortlinks (group_id, code, url, created_at, expires_at, creator, owner)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		groupID,
		string(lnk.Code),
		lnk.URL,
		lnk.CreatedAt,
		lnk.ExpiresAt,
		string(lnk.Creator),
		string(lnk.Owner),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return link.ShortLink{}, &store.DuplicateCodeError{Group: lnk.Group, Code: lnk.Code}
		}

		return link.ShortLink{}, fmt.Errorf("insert link: %w", err)
	}

	return lnk, nil
}

// internGroup upserts the group row and returns its surrogate id. Two
// concurrent creates in a brand-new group race benignly: ON CONFLICT DO
// NOTHING treats "group already exists" as success.
func (s *Store) internGroup(ctx context.Context, group link.Group) (int64, error) {
	upsert := `INSERT INTO shortlink_groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

	if _, err := s.pool.Exec(ctx, upsert, string(group)); err != nil {
		return 0, fmt.Errorf("intern group: %w", err)
	}

	var id int64

	query := `SELECT id FROM shortlink_groups WHERE name = $1`
	if err := s.pool.QueryRow(ctx, query, string(group)).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve group id: %w", err)
	}

	return id, nil
}

// isDuplicateKey detects a unique-constraint violation. SQLSTATE 23505 is
// checked first; the message patterns cover drivers that do not surface a
// structured code (mysql and postgres word it differently).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Duplicate entry")
}

const selectColumns = `
	SELECT g.name, sl.code, sl.url, sl.created_at, sl.expires_at, sl.creator, sl.owner
	FROM shortlinks sl
	JOIN shortlink_groups g ON g.id = sl.group_id
`

func (s *Store) Get(ctx context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error) {
	query := selectColumns + `WHERE g.name = $1 AND sl.code = $2`
	args := []any{string(group), string(code)}

	if excludeExpired {
		// now comes from the injected clock, never the database clock, so
		// expiry is deterministic under test.
		query += ` AND (sl.expires_at IS NULL OR sl.expires_at >= $3)`
		args = append(args, s.clk.Now().UnixMilli())
	}

	lnk, err := scanLink(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("select link: %w", err)
	}

	return lnk, nil
}

func scanLink(row pgx.Row) (*link.ShortLink, error) {
	var (
		lnk       link.ShortLink
		groupName string
		code      string
		creator   string
		owner     string
	)

	err := row.Scan(&groupName, &code, &lnk.URL, &lnk.CreatedAt, &lnk.ExpiresAt, &creator, &owner)
	if err != nil {
		return nil, err
	}

	lnk.Group = link.Group(groupName)
	lnk.Code = link.Code(code)
	lnk.Creator = link.User(creator)
	lnk.Owner = link.User(owner)

	return &lnk, nil
}

// UpdateURL folds the authorization predicate into the UPDATE's WHERE clause
// so check-then-mutate is a single atomic statement. Zero affected rows means
// the record is missing or owned by someone else; the two cases are
// indistinguishable on purpose.
func (s *Store) UpdateURL(ctx context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error {
	query := `
		UPDATE shortlinks sl
		SET url = $1
		FROM shortlink_groups g
		WHERE sl.group_id = g.id
		  AND g.name = $2
		  AND sl.code = $3
		  AND (sl.owner = $4 OR sl.owner = $5)
	`

	tag, err := s.pool.Exec(ctx, query,
		rawURL,
		string(group),
		string(code),
		string(link.AnonymousUser),
		string(updater),
	)
	if err != nil {
		return fmt.Errorf("update url: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

func (s *Store) UpdateExpiry(ctx context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error {
	query := `
		UPDATE shortlinks sl
		SET expires_at = $1
		FROM shortlink_groups g
		WHERE sl.group_id = g.id
		  AND g.name = $2
		  AND sl.code = $3
		  AND (sl.owner = $4 OR sl.owner = $5)
	`

	tag, err := s.pool.Exec(ctx, query,
		expiresAt,
		string(group),
		string(code),
		string(link.AnonymousUser),
		string(updater),
	)
	if err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, group link.Group, code link.Code, deleter link.User) error {
	query := `
		DELETE FROM shortlinks sl
		USING shortlink_groups g
		WHERE sl.group_id = g.id
		  AND g.name = $1
		  AND sl.code = $2
		  AND (sl.owner = $3 OR sl.owner = $4)
	`

	tag, err := s.pool.Exec(ctx, query,
		string(group),
		string(code),
		string(link.AnonymousUser),
		string(deleter),
	)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

// ListByGroupAndOwner pages with LIMIT/OFFSET over a stable ORDER BY on the
// surrogate id; the token is the next offset as a decimal string. Offsets
// are not stable under concurrent inserts or deletes mid-scan — entries can
// skip or repeat — which this system accepts for its listing use case.
func (s *Store) ListByGroupAndOwner(ctx context.Context, group link.Group, owner link.User, pageToken string, limit int) (*store.PaginatedResult, error) {
	offset := 0

	if pageToken != "" {
		var err error

		offset, err = strconv.Atoi(pageToken)
		if err != nil || offset < 0 {
			return nil, store.ErrInvalidPageToken
		}
	}

	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	query := selectColumns + `
		WHERE g.name = $1 AND sl.owner = $2
		ORDER BY sl.id
		LIMIT $3 OFFSET $4
	`

	// One extra row decides whether a further page exists.
	rows, err := s.pool.Query(ctx, query, string(group), string(owner), limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var entries []link.ShortLink

	for rows.Next() {
		lnk, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}

		entries = append(entries, *lnk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := &store.PaginatedResult{Entries: entries}

	if len(entries) > limit {
		result.Entries = entries[:limit]
		result.NextPageToken = strconv.Itoa(offset + limit)
	}

	return result, nil
}

var _ store.Store = (*Store)(nil)
