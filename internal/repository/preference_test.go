package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB registra as consultas e devolve respostas pré-definidas
type fakeDB struct {
	mu       sync.Mutex
	queries  []string
	args     [][]driver.Value
	rows     [][]driver.Value
	affected int64
	err      error
}

func (f *fakeDB) record(query string, args []driver.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, strings.Join(strings.Fields(query), " "))
	f.args = append(f.args, args)
	return f.err
}

func (f *fakeDB) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: f}, nil }
func (f *fakeDB) Driver() driver.Driver                        { return fakeDriver{db: f} }

type fakeDriver struct{ db *fakeDB }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{db: d.db}, nil }

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{db: c.db, query: query}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type fakeStmt struct {
	db    *fakeDB
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	if err := s.db.record(s.query, args); err != nil {
		return nil, err
	}
	return driver.RowsAffected(s.db.affected), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	if err := s.db.record(s.query, args); err != nil {
		return nil, err
	}
	return &fakeRows{values: s.db.rows}, nil
}

type fakeRows struct {
	values [][]driver.Value
	next   int
}

func (r *fakeRows) Columns() []string { return []string{"value"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

func newFakeRepository(t *testing.T, f *fakeDB) *PreferenceRepository {
	t.Helper()
	db := sql.OpenDB(f)
	t.Cleanup(func() { db.Close() })
	return NewPreferenceRepository(db)
}

func TestGetMissingPreference(t *testing.T) {
	f := &fakeDB{}
	repo := newFakeRepository(t, f)

	value, found, err := repo.Get(context.Background(), "visitor-1", "theme")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)

	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "FROM visitor_preferences WHERE visitor_id = $1 AND key = $2 AND expires_at > NOW()")
	assert.Equal(t, []driver.Value{"visitor-1", "theme"}, f.args[0])
}

func TestGetStoredPreference(t *testing.T) {
	f := &fakeDB{rows: [][]driver.Value{{"dark"}}}
	repo := newFakeRepository(t, f)

	value, found, err := repo.Get(context.Background(), "visitor-1", "theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", value)
}

func TestGetWrapsDriverErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := newFakeRepository(t, &fakeDB{err: boom})

	_, found, err := repo.Get(context.Background(), "visitor-1", "theme")
	assert.False(t, found)
	assert.ErrorIs(t, err, boom)
}

func TestUpsertPreference(t *testing.T) {
	f := &fakeDB{affected: 1}
	repo := newFakeRepository(t, f)
	expires := time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Upsert(context.Background(), "visitor-1", "language", "en", expires))

	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "INSERT INTO visitor_preferences (visitor_id, key, value, expires_at, updated_at)")
	assert.Contains(t, f.queries[0], "ON CONFLICT (visitor_id, key) DO UPDATE")
	require.Len(t, f.args[0], 4)
	assert.Equal(t, "visitor-1", f.args[0][0])
	assert.Equal(t, "language", f.args[0][1])
	assert.Equal(t, "en", f.args[0][2])
	assert.True(t, expires.Equal(f.args[0][3].(time.Time)))
}

func TestUpsertWrapsDriverErrors(t *testing.T) {
	boom := errors.New("disk full")
	repo := newFakeRepository(t, &fakeDB{err: boom})

	err := repo.Upsert(context.Background(), "visitor-1", "theme", "dark", time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestDeleteExpired(t *testing.T) {
	f := &fakeDB{affected: 3}
	repo := newFakeRepository(t, f)

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, f.queries, 1)
	assert.Equal(t, "DELETE FROM visitor_preferences WHERE expires_at <= NOW()", f.queries[0])
	assert.Empty(t, f.args[0])
}
