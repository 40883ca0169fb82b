package source

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testTemplate = "SELECT RowID, Username FROM {table_path} WHERE Creator = ?"

func newMockExecutor(t *testing.T) (Executor, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	open := func(config.SourceConfig) (*gorm.DB, error) {
		return gorm.Open(mysql.New(mysql.Config{
			Conn:                      sqlDB,
			SkipInitializeWithVersion: true,
		}), &gorm.Config{Logger: gormlogger.Discard, SkipDefaultTransaction: true})
	}
	reg := NewRegistryWithOpener([]config.SourceConfig{{Name: "alpha"}, {Name: "beta"}}, open, zap.NewNop())
	exec := NewExecutor(ExecutorParam{Registry: reg, Log: zap.NewNop()})
	return exec, mock
}

func queryFor(table string) string {
	return regexp.QuoteMeta("FROM " + table + " WHERE")
}

func TestRunFallsBackAfterError(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(queryFor("primary_tbl")).WithArgs("acme").WillReturnError(errors.New("table missing"))
	mock.ExpectQuery(queryFor("backup_tbl")).WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"RowID", "Username"}).AddRow(int64(7), []byte("u1")))

	res, err := exec.Run(context.Background(), "alpha", Query{Template: testTemplate, Args: []any{"acme"}}, []string{"primary_tbl", "backup_tbl"})
	require.NoError(t, err)
	assert.Equal(t, "backup_tbl", res.TableName)
	assert.Equal(t, "alpha", res.Tenant)
	assert.Equal(t, []string{"RowID", "Username"}, res.Data.Columns)
	require.Len(t, res.Data.Rows, 1)
	assert.Equal(t, "u1", res.Data.Rows[0]["Username"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsEmptyCandidate(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(queryFor("primary_tbl")).WillReturnRows(sqlmock.NewRows([]string{"RowID", "Username"}))
	mock.ExpectQuery(queryFor("backup_tbl")).
		WillReturnRows(sqlmock.NewRows([]string{"RowID", "Username"}).AddRow(int64(1), "u1"))

	res, err := exec.Run(context.Background(), "alpha", Query{Template: testTemplate, Args: []any{"acme"}}, []string{"primary_tbl", "backup_tbl"})
	require.NoError(t, err)
	assert.Equal(t, "backup_tbl", res.TableName)
	assert.Equal(t, 1, res.Data.Len())
}

func TestRunAllEmptyIsNotAnError(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(queryFor("primary_tbl")).WillReturnRows(sqlmock.NewRows([]string{"RowID"}))
	mock.ExpectQuery(queryFor("backup_tbl")).WillReturnError(errors.New("boom"))

	res, err := exec.Run(context.Background(), "alpha", Query{Template: testTemplate, Args: []any{"acme"}}, []string{"primary_tbl", "backup_tbl"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data.Len())
	assert.Empty(t, res.TableName)
}

func TestRunAllFailedReturnsLastError(t *testing.T) {
	exec, mock := newMockExecutor(t)

	first := errors.New("first failure")
	last := errors.New("last failure")
	mock.ExpectQuery(queryFor("primary_tbl")).WillReturnError(first)
	mock.ExpectQuery(queryFor("backup_tbl")).WillReturnError(last)

	_, err := exec.Run(context.Background(), "alpha", Query{Template: testTemplate, Args: []any{"acme"}}, []string{"primary_tbl", "backup_tbl"})
	require.Error(t, err)

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "backup_tbl", connErr.Table)
	assert.ErrorIs(t, err, last)
	assert.NotErrorIs(t, err, first)
}

func TestRunRejectsUnsafeTableName(t *testing.T) {
	exec, _ := newMockExecutor(t)

	_, err := exec.Run(context.Background(), "alpha", Query{Template: testTemplate}, []string{"users; DROP TABLE x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTableName)
}

func TestRunWithoutCandidatesRunsTemplateOnce(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 AS one")).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(int64(1)))

	res, err := exec.Run(context.Background(), "", Query{Template: "SELECT 1 AS one"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.Tenant)
	assert.Equal(t, 1, res.Data.Len())
}

func TestRunUnknownTenant(t *testing.T) {
	exec, _ := newMockExecutor(t)

	_, err := exec.Run(context.Background(), "gamma", Query{Template: testTemplate}, []string{"primary_tbl"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "gamma", cfgErr.Tenant)
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistryWithOpener([]config.SourceConfig{{Name: "alpha"}, {Name: "beta"}, {Name: "alpha"}}, nil, nil)

	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	name, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "alpha", name)

	name, err = reg.Resolve("beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", name)

	_, err = NewRegistryWithOpener(nil, nil, nil).Resolve("")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPackageSize(t *testing.T) {
	gib := int64(1 << 30)

	tests := []struct {
		name    string
		in      [5]int64
		want    *float64
	}{
		{name: "none", in: [5]int64{0, 0, 0, 0, 0}, want: nil},
		{name: "monthly wins", in: [5]int64{10 * gib, 20 * gib, 0, 0, 0}, want: ptr(10)},
		{name: "falls to daily", in: [5]int64{0, 0, gib / 2, 0, 0}, want: ptr(0.5)},
		{name: "extra last", in: [5]int64{0, 0, 0, 0, 3 * gib}, want: ptr(3)},
		{name: "rounded", in: [5]int64{1610612736 + 5368709, 0, 0, 0, 0}, want: ptr(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PackageSize(tt.in[:]...)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestPackageBytes(t *testing.T) {
	b, ok := PackageBytes(0, 0, 7, 9)
	assert.True(t, ok)
	assert.Equal(t, int64(7), b)

	_, ok = PackageBytes(0, 0)
	assert.False(t, ok)
	assert.Len(t, QuotaColumns, 5)
}
