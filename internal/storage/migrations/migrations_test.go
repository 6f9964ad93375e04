package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	stmts, err := statements(`
-- comment; with semicolon
CREATE TABLE a (x Int64);

CREATE TABLE b (
    y String DEFAULT 'it''s'
) ENGINE = MergeTree() ORDER BY y;
`)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.Contains(t, stmts[1], "ORDER BY y")

	_, err = statements(`SELECT 'a;b'`)
	assert.Error(t, err)
}

func TestLoad_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/010_late.sql":  {Data: []byte("SELECT 10;")},
		"pg/002_mid.sql":   {Data: []byte("SELECT 2;")},
		"pg/001_first.sql": {Data: []byte("SELECT 1;")},
		"pg/README.md":     {Data: []byte("ignored")},
	}
	ms, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{ms[0].version, ms[1].version, ms[2].version})
	assert.Equal(t, "010_late.sql", ms[2].name)
}

func TestLoad_RejectsBadNames(t *testing.T) {
	_, err := load(fstest.MapFS{"pg/init.sql": {Data: []byte("x")}}, "pg")
	assert.Error(t, err)

	_, err = load(fstest.MapFS{
		"pg/001_a.sql": {Data: []byte("x")},
		"pg/001_b.sql": {Data: []byte("y")},
	}, "pg")
	assert.ErrorContains(t, err, "share version 1")
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(postgresFiles, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := load(clickhouseFiles, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		stmts, err := statements(m.sql)
		require.NoError(t, err, m.name)
		assert.NotEmpty(t, stmts, m.name)
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`copier`", quoteIdent("copier"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}
