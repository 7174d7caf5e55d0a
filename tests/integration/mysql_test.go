//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/keygraph/internal/db"
)

func TestMySQLKeys(t *testing.T) {
	ctx := context.Background()

	// Use environment variable if set, otherwise use default test connection string
	connString := os.Getenv("MYSQL_TEST_URL")
	if connString == "" {
		connString = "root:testpassword@tcp(localhost:3306)/testdb"
	}

	client, err := db.NewMySQLClient(ctx, connString)
	require.NoError(t, err, "failed to connect to MySQL")
	defer client.Close()

	schemaName, err := db.ParseDatabaseName(connString)
	require.NoError(t, err)

	setupFixture(t, func(ctx context.Context, stmt string) error {
		_, err := client.GetDB().ExecContext(ctx, stmt)
		return err
	})

	verifySource(t, client.Source(schemaName))
}
