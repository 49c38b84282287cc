package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/text-ql/internal/config"
	"github.com/GoogleCloudPlatform/text-ql/internal/database"
)

type mysqlHandler struct{}

var _ database.DialectHandler = (*mysqlHandler)(nil)

func (h mysqlHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	instanceConnectionName := cfg.CloudSQLInstanceConnectionName
	if cfg.User == "" || cfg.Password == "" || cfg.DBName == "" || instanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL connection parameter (user, pass, db, instance)")
	}

	d, err := cloudsqlconn.NewDialer(context.Background())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}

	var opts []cloudsqlconn.DialOption
	if cfg.UsePrivateIP {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}

	network := fmt.Sprintf("cloudsql-%s", instanceConnectionName)

	mysql.RegisterDialContext(network,
		func(ctx context.Context, addr string) (net.Conn, error) {
			conn, dialErr := d.Dial(ctx, instanceConnectionName, opts...)
			if dialErr != nil {
				zap.L().Error("cloud sql dial failed",
					zap.String("instance", instanceConnectionName), zap.Error(dialErr))
			}
			return conn, dialErr
		})

	dbPool, err := sql.Open("mysql", cloudSQLConfig(cfg, network).FormatDSN())
	if err != nil {
		mysql.DeregisterDialContext(network)
		d.Close()
		return nil, fmt.Errorf("sql.Open failed for CloudSQL MySQL: %w", err)
	}
	return dbPool, nil
}

func cloudSQLConfig(cfg config.DatabaseConfig, network string) *mysql.Config {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = network
	mysqlCfg.Addr = cfg.CloudSQLInstanceConnectionName
	mysqlCfg.DBName = cfg.DBName
	mysqlCfg.AllowNativePasswords = true
	mysqlCfg.ParseTime = true
	return mysqlCfg
}

func standardConfig(cfg config.DatabaseConfig) *mysql.Config {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.User
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	mysqlCfg.DBName = cfg.DBName
	mysqlCfg.AllowNativePasswords = true
	mysqlCfg.ParseTime = true
	return mysqlCfg
}

func (h mysqlHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	connector, err := mysql.NewConnector(standardConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql connector (standard mysql): %w", err)
	}
	return sql.OpenDB(connector), nil
}

const listTablesQuery = "SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"

func (h mysqlHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("error querying tables: %w", err)
	}
	tables, err := database.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("error reading table names: %w", err)
	}
	return tables, nil
}

const listColumnsQuery = `
		  SELECT COLUMN_NAME, COLUMN_TYPE
		  FROM information_schema.COLUMNS
		  WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?
		  ORDER BY ORDINAL_POSITION;`

func (h mysqlHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]database.ColumnInfo, error) {
	rows, err := db.Pool.QueryContext(ctx, listColumnsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []database.ColumnInfo
	for rows.Next() {
		var col database.ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("error scanning column for table %s: %w", tableName, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns for table %s: %w", tableName, err)
	}
	return columns, nil
}

const listPrimaryKeysQuery = `
		  SELECT COLUMN_NAME
		  FROM information_schema.KEY_COLUMN_USAGE
		  WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?
			AND CONSTRAINT_NAME = 'PRIMARY'
		  ORDER BY ORDINAL_POSITION;`

func (h mysqlHandler) ListPrimaryKeys(ctx context.Context, db *database.DB, tableName string) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, listPrimaryKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying primary keys for table %s: %w", tableName, err)
	}
	keys, err := database.ScanStrings(rows)
	if err != nil {
		return nil, fmt.Errorf("error reading primary keys for table %s: %w", tableName, err)
	}
	return keys, nil
}

const foreignKeysQuery = `
		  SELECT
			COLUMN_NAME,
			REFERENCED_TABLE_NAME AS referenced_table,
			REFERENCED_COLUMN_NAME AS referenced_column
		  FROM information_schema.KEY_COLUMN_USAGE
		  WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?
			AND REFERENCED_TABLE_NAME IS NOT NULL
		  ORDER BY ORDINAL_POSITION;`

func (h mysqlHandler) GetForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]database.ForeignKeyInfo, error) {
	rows, err := db.Pool.QueryContext(ctx, foreignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys for %s: %w", tableName, err)
	}
	defer rows.Close()

	var fks []database.ForeignKeyInfo
	for rows.Next() {
		var fk database.ForeignKeyInfo
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("error scanning foreign key data for %s: %w", tableName, err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys for %s: %w", tableName, err)
	}
	return fks, nil
}

const columnCommentQuery = `
		  SELECT COLUMN_COMMENT
		  FROM information_schema.COLUMNS
		  WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?
			AND COLUMN_NAME = ?;`

func (h mysqlHandler) GetColumnComment(ctx context.Context, db *database.DB, tableName string, columnName string) (string, error) {
	comment, err := database.ScanComment(db.Pool.QueryRowContext(ctx, columnCommentQuery, tableName, columnName))
	if err != nil {
		return "", fmt.Errorf("column %s.%s: %w", tableName, columnName, err)
	}
	return strings.TrimSpace(comment), nil
}

const tableCommentQuery = `
		  SELECT TABLE_COMMENT
		  FROM information_schema.TABLES
		  WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?;`

func (h mysqlHandler) GetTableComment(ctx context.Context, db *database.DB, tableName string) (string, error) {
	comment, err := database.ScanComment(db.Pool.QueryRowContext(ctx, tableCommentQuery, tableName))
	if err != nil {
		return "", fmt.Errorf("table %s: %w", tableName, err)
	}
	return strings.TrimSpace(comment), nil
}

func init() {
	database.RegisterDialectHandler("mysql", mysqlHandler{})
	database.RegisterDialectHandler("cloudsqlmysql", mysqlHandler{})
}
