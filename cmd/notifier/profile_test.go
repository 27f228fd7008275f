package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"progress_notifier/internal/infra/config"
	"progress_notifier/internal/infra/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfilerReusesGivenPool(t *testing.T) {
	logger.Log.SetOutput(io.Discard)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM sessions").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("FROM user_session_logs").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("FROM user_session_logs").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cfg := &config.AppConfig{
		DatabaseURL: "postgres://unused@localhost/kolibri",
		PIDFile:     filepath.Join(t.TempDir(), "server.pid"),
	}
	profiler, closeDB, err := newProfiler(cfg, db, nil)
	require.NoError(t, err)

	line := profiler.Tick(context.Background())
	assert.True(t, strings.HasPrefix(line, "3,2,1,"), line)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The shared pool belongs to the caller.
	closeDB()
	assert.NoError(t, db.Ping())
}

func TestNewProfilerWithoutDatabase(t *testing.T) {
	logger.Log.SetOutput(io.Discard)
	cfg := &config.AppConfig{PIDFile: filepath.Join(t.TempDir(), "server.pid")}

	profiler, closeDB, err := newProfiler(cfg, nil, nil)
	require.NoError(t, err)
	defer closeDB()

	line := profiler.Tick(context.Background())
	assert.True(t, strings.HasPrefix(line, "unknown,unknown,unknown,"), line)
	assert.Len(t, strings.Split(line, ","), 9)
}
