package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// mockOpener hands out a sqlmock database and records the credential it was
// asked to open with.
type mockOpener struct {
	db      *sql.DB
	err     error
	opened  int
	lastCrd *identity.Credential
}

func (o *mockOpener) Open(cred *identity.Credential) (*sql.DB, error) {
	o.opened++
	o.lastCrd = cred
	if o.err != nil {
		return nil, o.err
	}
	return o.db, nil
}

func newMockExecutor(t *testing.T) (*Executor, *mockOpener, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg := &config.Config{
		Host:         "adb-1.azuredatabricks.net",
		WarehouseID:  "wh1",
		Query:        "SELECT * FROM trips LIMIT 5",
		QueryTimeout: 5 * time.Second,
	}
	opener := &mockOpener{db: db}
	return NewExecutor(cfg, opener, nil, slog.Default()), opener, mock
}

func assertMockExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRun_UserToken(t *testing.T) {
	exec, opener, mock := newMockExecutor(t)
	pickup := time.Date(2016, 2, 14, 16, 52, 13, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM trips LIMIT 5")).
		WillReturnRows(sqlmock.NewRows([]string{"tpep_pickup_datetime", "trip_distance", "pickup_zip"}).
			AddRow(pickup, 4.94, int64(10282)).
			AddRow(pickup.Add(time.Hour), 0.28, int64(10110)))
	mock.ExpectClose()

	cred := &identity.Credential{Token: "T", Class: identity.DelegatedUserToken}
	res, err := exec.Run(context.Background(), cred)
	require.NoError(t, err)

	assert.Equal(t, ModeUserToken, res.Mode)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "2016-02-14T16:52:13Z", res.Rows[0]["tpep_pickup_datetime"])
	assert.Equal(t, 4.94, res.Rows[0]["trip_distance"])
	assert.Equal(t, int64(10110), res.Rows[1]["pickup_zip"])
	assert.Same(t, cred, opener.lastCrd)
	assertMockExpectations(t, mock)
}

func TestRun_DateColumnHasNoTimePart(t *testing.T) {
	exec, _, mock := newMockExecutor(t)
	day := time.Date(2016, 2, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("pickup_date").OfType("DATE", day),
			sqlmock.NewColumn("tpep_pickup_datetime").OfType("TIMESTAMP", day),
		).AddRow(day, day))
	mock.ExpectClose()

	res, err := exec.Run(context.Background(), &identity.Credential{Token: "T", Class: identity.DelegatedUserToken})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2016-02-14", res.Rows[0]["pickup_date"])
	assert.Equal(t, "2016-02-14T00:00:00Z", res.Rows[0]["tpep_pickup_datetime"])
	assertMockExpectations(t, mock)
}

func TestRun_ServicePrincipal(t *testing.T) {
	exec, opener, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}))
	mock.ExpectClose()

	res, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, ModeServicePrincipal, res.Mode)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
	assert.Nil(t, opener.lastCrd)
	assertMockExpectations(t, mock)
}

func TestRun_QueryFailureNamesMode(t *testing.T) {
	exec, _, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("PERMISSION_DENIED: table trips"))
	mock.ExpectClose()

	_, err := exec.Run(context.Background(), &identity.Credential{Token: "C", Class: identity.NotebookNativeToken})

	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, ModeVerifiedToken, qerr.Mode)
	assert.Contains(t, err.Error(), "Query failed (verified_token)")
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
	assertMockExpectations(t, mock)
}

func TestRun_RowErrorStillCloses(t *testing.T) {
	exec, _, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).
		AddRow(int64(1)).
		AddRow(int64(2)).
		RowError(1, errors.New("stream reset")))
	mock.ExpectClose()

	_, err := exec.Run(context.Background(), nil)

	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assertMockExpectations(t, mock)
}

func TestRun_OpenFailure(t *testing.T) {
	exec, opener, _ := newMockExecutor(t)
	opener.err = &config.MissingSettingError{Setting: "DATABRICKS_CLIENT_ID"}

	_, err := exec.Run(context.Background(), nil)

	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	var missing *config.MissingSettingError
	assert.True(t, errors.As(err, &missing))
}

func TestRun_MissingWarehouse(t *testing.T) {
	opener := &mockOpener{}
	exec := NewExecutor(&config.Config{Host: "h"}, opener, nil, slog.Default())

	_, err := exec.Run(context.Background(), nil)

	var missing *config.MissingSettingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "DATABRICKS_WAREHOUSE_ID", missing.Setting)
	assert.Equal(t, 0, opener.opened)
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeServicePrincipal, ModeFor(nil))
	assert.Equal(t, ModeUserToken, ModeFor(&identity.Credential{Class: identity.DelegatedUserToken}))
	assert.Equal(t, ModeVerifiedToken, ModeFor(&identity.Credential{Class: identity.NotebookNativeToken}))
}

func TestDatabricksOpener_RequiresSettings(t *testing.T) {
	_, err := NewDatabricksOpener(&config.Config{WarehouseID: "wh"}).Open(nil)
	var missing *config.MissingSettingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "DATABRICKS_HOST", missing.Setting)

	_, err = NewDatabricksOpener(&config.Config{Host: "h", WarehouseID: "wh"}).Open(nil)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "DATABRICKS_CLIENT_ID", missing.Setting)
}

func TestDatabricksOpener_TokenDoesNotConnect(t *testing.T) {
	db, err := NewDatabricksOpener(&config.Config{Host: "https://h.example.com/", WarehouseID: "wh"}).
		Open(&identity.Credential{Token: "T", Class: identity.DelegatedUserToken})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
