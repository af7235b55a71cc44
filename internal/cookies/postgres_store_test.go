package cookies

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for SQL mocks.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockedPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	// Ping monitoring must be on or ExpectPing is a silent no-op.
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	mockPool.ExpectExec(flexibleSQLMatcher("CREATE TABLE IF NOT EXISTS session_jars")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return store, mockPool
}

func TestNewPostgresStorePingFailure(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = NewPostgresStore(context.Background(), mockPool, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreSave(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)
	ctx := context.Background()
	jar := testJar("alice")

	mockPool.ExpectExec(flexibleSQLMatcher("INSERT INTO session_jars")).
		WithArgs("alice", pgxmock.AnyArg(), jar.SavedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(ctx, "alice", jar))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreLoad(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)
	ctx := context.Background()

	jar := testJar("alice")
	data, err := json.Marshal(jar)
	require.NoError(t, err)

	mockPool.ExpectQuery(flexibleSQLMatcher("SELECT jar FROM session_jars WHERE account_id = $1")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"jar"}).AddRow(data))

	loaded, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, jar.Account, loaded.Account)
	assert.Len(t, loaded.Cookies, 2)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreLoadMissingRow(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)

	mockPool.ExpectQuery(flexibleSQLMatcher("SELECT jar FROM session_jars WHERE account_id = $1")).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreLoadCorruptColumn(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)

	mockPool.ExpectQuery(flexibleSQLMatcher("SELECT jar FROM session_jars WHERE account_id = $1")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"jar"}).AddRow([]byte("{broken")))

	_, err := store.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)

	mockPool.ExpectExec(flexibleSQLMatcher("DELETE FROM session_jars WHERE account_id = $1")).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.Delete(context.Background(), "alice"))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStoreSaveStampsTime(t *testing.T) {
	store, mockPool := newMockedPostgresStore(t)

	jar := testJar("alice")
	jar.SavedAt = time.Time{}

	mockPool.ExpectExec(flexibleSQLMatcher("INSERT INTO session_jars")).
		WithArgs("alice", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), "alice", jar))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
