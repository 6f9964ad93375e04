package clickhouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const ledgerSchemaFile = "../migrations/clickhouse/001_ledger_entries.sql"

// newTestConn starts a throwaway ClickHouse server with the ledger mirror schema.
// The container is removed when the test ends.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("clickhouse integration test")
	}
	ctx := context.Background()

	ch, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "copier_test"},
			WaitingFor: wait.ForListeningPort("9000/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Terminate(context.Background()) })

	endpoint, err := ch.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := Open(ctx, fmt.Sprintf("clickhouse://%s/copier_test", endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// The migrations package depends on this one, so the schema is read from disk.
	schema, err := os.ReadFile(ledgerSchemaFile)
	require.NoError(t, err)
	for _, stmt := range strings.Split(stripSQLComments(string(schema)), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			require.NoError(t, conn.Exec(ctx, stmt))
		}
	}
	return conn
}

// stripSQLComments drops "--" comment lines.
func stripSQLComments(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "--") {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
