package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SheetsConfig(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sheets")
	t.Setenv("SHEETS_SPREADSHEET_ID", "sheet-123")
	t.Setenv("SHEETS_CREDENTIALS_FILE", "/secrets/sa.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendSheets, cfg.Store.Backend)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "Sheet1", cfg.Sheets.Worksheet)
	assert.Equal(t, "/secrets/sa.json", cfg.Sheets.CredentialsFile)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "feedback_session", cfg.Session.CookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, 5, cfg.Feedback.RateLimit)
	assert.Equal(t, time.Hour, cfg.Feedback.RateWindow)
	assert.Equal(t, []string{"*"}, cfg.Feedback.AllowedOrigins)
	assert.False(t, cfg.Typesense.Enabled)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_SheetsWithoutSpreadsheetID(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sheets")
	t.Setenv("SHEETS_SPREADSHEET_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHEETS_SPREADSHEET_ID")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "excel")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORE_BACKEND "excel"`)
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsList("ALLOWED_ORIGINS", nil))
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "feedback", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=feedback sslmode=disable", db.DatabaseDSN())
}
