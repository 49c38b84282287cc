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
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TEXTQL"

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"username"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"name"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"cloudsql_use_private_ip"`
}

// PolicyConfig is the user-facing form of the gate policy. Empty
// ModifyingStatements or StatementWarnings fall back to the built-in defaults.
type PolicyConfig struct {
	MaxRowLimit         int               `mapstructure:"max_row_limit"`
	PlaceholderPattern  string            `mapstructure:"placeholder_pattern"`
	ModifyingStatements []string          `mapstructure:"modifying_statements"`
	StatementWarnings   map[string]string `mapstructure:"statement_warnings"`
	SuggestionDistance  int               `mapstructure:"suggestion_distance"`
}

// LogConfig selects the logger level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SupportedDialects lists every dialect with a registered handler.
var SupportedDialects = []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}

// Every key needs a default, even an empty one, so that AutomaticEnv can
// override it during Unmarshal.
var defaults = map[string]any{
	"database.dialect":                           "postgres",
	"database.host":                              "localhost",
	"database.port":                              5432,
	"database.username":                          "",
	"database.password":                          "",
	"database.name":                              "",
	"database.sslmode":                           "disable",
	"database.cloudsql_instance_connection_name": "",
	"database.cloudsql_use_private_ip":           false,
	"policy.max_row_limit":                       50,
	"policy.placeholder_pattern":                 "<[A-Z][A-Z0-9_]*>",
	"policy.suggestion_distance":                 2,
	"log.level":                                  "info",
	"log.format":                                 "console",
}

// configFileCandidates are looked up in the working directory when no file is given.
var configFileCandidates = []string{"textql.yaml", "textql.yml", ".textql.yaml"}

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Decoding plain defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load resolves the configuration. Precedence, highest first: flags bound on v,
// TEXTQL_* environment variables, the config file, defaults. An explicit file
// must exist; otherwise the first of configFileCandidates present is used.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file == "" {
		for _, candidate := range configFileCandidates {
			if _, err := os.Stat(candidate); err == nil {
				file = candidate
				break
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that do not need a database connection.
func (c *Config) Validate() error {
	var errs []error
	if c.Policy.MaxRowLimit <= 0 {
		errs = append(errs, fmt.Errorf("policy.max_row_limit must be positive, got %d", c.Policy.MaxRowLimit))
	}
	if c.Policy.SuggestionDistance < 0 {
		errs = append(errs, fmt.Errorf("policy.suggestion_distance must not be negative, got %d", c.Policy.SuggestionDistance))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateDialect reports whether the configured dialect is supported.
func (d DatabaseConfig) ValidateDialect() error {
	for _, supported := range SupportedDialects {
		if d.Dialect == supported {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", d.Dialect, strings.Join(SupportedDialects, ", "))
}

// GetConfig returns the process-wide configuration, or the defaults when none was set.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalConfig == nil {
		return Default()
	}
	return globalConfig
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}
