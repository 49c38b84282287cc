/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/text-ql/internal/config"
	"github.com/GoogleCloudPlatform/text-ql/internal/database"
	_ "github.com/GoogleCloudPlatform/text-ql/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/text-ql/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/text-ql/internal/database/sqlserver"
	"github.com/GoogleCloudPlatform/text-ql/internal/logging"
)

var (
	cfgFile string
	v       = viper.New()

	logger = zap.NewNop()
	runID  string
)

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":                         "log.level",
	"log-format":                        "log.format",
	"max-row-limit":                     "policy.max_row_limit",
	"dialect":                           "database.dialect",
	"host":                              "database.host",
	"port":                              "database.port",
	"username":                          "database.username",
	"password":                          "database.password",
	"database":                          "database.name",
	"sslmode":                           "database.sslmode",
	"cloudsql-instance-connection-name": "database.cloudsql_instance_connection_name",
	"cloudsql-use-private-ip":           "database.cloudsql_use_private_ip",
}

var rootCmd = &cobra.Command{
	Use:   "textql",
	Short: "A policy gate for generated SQL",
	Long: `textql runs generated SQL through a deterministic policy gate before it
reaches a database and reports a status for every statement. A schema file or a
live database can be supplied to cross-check table and column names.`,
	SilenceUsage:      true,
	PersistentPreRunE: initFlagsAndConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// initFlagsAndConfig resolves the configuration from flags, environment and
// config file, then builds the run's logger.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	config.SetConfig(cfg)

	base, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	runID = uuid.NewString()
	logger = base.With(zap.String("run_id", runID))
	zap.ReplaceGlobals(logger)

	logger.Debug("configuration loaded",
		zap.String("command", cmd.CommandPath()),
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("dialect", cfg.Database.Dialect))
	return nil
}

func setupDatabase(ctx context.Context) (*database.DB, error) {
	dbConfig := config.GetConfig().Database
	if err := dbConfig.ValidateDialect(); err != nil {
		return nil, err
	}
	db, err := database.New(ctx, dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", zap.String("dialect", dbConfig.Dialect), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is ./textql.yaml when present)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.Int("max-row-limit", 50, "Largest LIMIT allowed on read-only statements")

	// Database connection flags, used by --schema-from-db and schema dump
	flags.String("dialect", "postgres", fmt.Sprintf("Database dialect (%s)", strings.Join(config.SupportedDialects, ", ")))
	flags.String("host", "localhost", "Database host")
	flags.Int("port", 5432, "Database port")
	flags.String("username", "", "Database username")
	flags.String("password", "", "Database password")
	flags.String("database", "", "Database name")
	flags.String("sslmode", "disable", "SSL mode (postgres)")
	flags.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	flags.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(schemaCmd)
}
