package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Policy.MaxRowLimit)
	assert.Equal(t, "<[A-Z][A-Z0-9_]*>", cfg.Policy.PlaceholderPattern)
	assert.Equal(t, 2, cfg.Policy.SuggestionDistance)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
database:
  dialect: mysql
  host: db.internal
  port: 3306
  name: shop
policy:
  max_row_limit: 200
  modifying_statements: [INSERT, DROP]
  statement_warnings:
    insert: "adds rows"
log:
  format: json
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "shop", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode, "unset keys keep defaults")
	assert.Equal(t, 200, cfg.Policy.MaxRowLimit)
	assert.Equal(t, []string{"INSERT", "DROP"}, cfg.Policy.ModifyingStatements)
	assert.Equal(t, map[string]string{"insert": "adds rows"}, cfg.Policy.StatementWarnings)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "policy:\n  max_row_limit: 200\ndatabase:\n  host: from-file\n")
	t.Setenv("TEXTQL_POLICY_MAX_ROW_LIMIT", "75")
	t.Setenv("TEXTQL_DATABASE_PASSWORD", "s3cret")

	t.Run("env overrides file", func(t *testing.T) {
		cfg, err := Load(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, 75, cfg.Policy.MaxRowLimit)
		assert.Equal(t, "from-file", cfg.Database.Host)
		assert.Equal(t, "s3cret", cfg.Database.Password)
	})

	t.Run("flags override env", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("max-row-limit", 0, "")
		require.NoError(t, flags.Parse([]string{"--max-row-limit=10"}))

		v := viper.New()
		require.NoError(t, v.BindPFlag("policy.max_row_limit", flags.Lookup("max-row-limit")))

		cfg, err := Load(v, path)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Policy.MaxRowLimit)
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "policy:\n  max_row_limit: 0\nlog:\n  format: xml\n")
		_, err := Load(viper.New(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_row_limit")
		assert.Contains(t, err.Error(), "log.format")
	})
}

func TestValidateDialect(t *testing.T) {
	for _, d := range SupportedDialects {
		assert.NoError(t, DatabaseConfig{Dialect: d}.ValidateDialect(), d)
	}
	err := DatabaseConfig{Dialect: "oracle"}.ValidateDialect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect: oracle")
}

func TestGlobalConfig(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	assert.Equal(t, Default(), GetConfig())

	cfg := Default()
	cfg.Policy.MaxRowLimit = 5
	SetConfig(cfg)
	assert.Same(t, cfg, GetConfig())
}
