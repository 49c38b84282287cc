package schema

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/text-ql/internal/database"
)

// DefaultLoadConcurrency bounds how many tables are introspected at once.
const DefaultLoadConcurrency = 4

// Loader builds a Context from a live database.
type Loader struct {
	Adapter database.DBAdapter
	Retry   RetryOptions
	Logger  *zap.Logger
	// TableFilters restricts the load to the listed tables; a table mapped to
	// a non-empty column list keeps only those columns.
	TableFilters map[string][]string
	Concurrency  int
}

// NewLoader returns a Loader with default retry and concurrency settings.
func NewLoader(adapter database.DBAdapter, logger *zap.Logger) *Loader {
	return &Loader{
		Adapter:     adapter,
		Retry:       DefaultRetryOptions,
		Logger:      logger,
		Concurrency: DefaultLoadConcurrency,
	}
}

// Load lists the tables, then fetches columns, keys and comments for each
// table concurrently. Tables keep the order the database returned them in.
// Column, key and table-list failures abort the load; comment failures are
// logged and leave the description empty.
func (l *Loader) Load(ctx context.Context) (*Context, error) {
	if l.Adapter == nil {
		return nil, &ErrInvalidInput{Msg: "schema loader", Err: fmt.Errorf("no database adapter")}
	}
	logger := l.logger()

	tables, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) ([]string, error) {
		names, err := l.Adapter.ListTables(ctx)
		return names, classifyError("list tables", err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	selected := l.filterTables(tables)
	logger.Info("loading schema", zap.Int("tables", len(selected)))

	results := make([]Table, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Concurrency, 1))
	for i, name := range selected {
		i, name := i, name
		g.Go(func() error {
			t, err := l.loadTable(gctx, name)
			if err != nil {
				return fmt.Errorf("table %s: %w", name, err)
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Context{Tables: results}, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l *Loader) loadTable(ctx context.Context, name string) (Table, error) {
	logger := l.logger().With(zap.String("table", name))

	columns, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) ([]database.ColumnInfo, error) {
		cols, err := l.Adapter.ListColumns(ctx, name)
		return cols, classifyError("list columns", err)
	})
	if err != nil {
		return Table{}, err
	}
	columns = l.filterColumns(name, columns)

	primaryKeys, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) ([]string, error) {
		keys, err := l.Adapter.ListPrimaryKeys(ctx, name)
		return keys, classifyError("list primary keys", err)
	})
	if err != nil {
		return Table{}, err
	}

	foreignKeys, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) ([]database.ForeignKeyInfo, error) {
		fks, err := l.Adapter.GetForeignKeys(ctx, name)
		return fks, classifyError("get foreign keys", err)
	})
	if err != nil {
		return Table{}, err
	}

	isPrimary := make(map[string]bool, len(primaryKeys))
	for _, k := range primaryKeys {
		isPrimary[k] = true
	}
	references := make(map[string]string, len(foreignKeys))
	for _, fk := range foreignKeys {
		// Composite or repeated references keep the first target.
		if _, seen := references[fk.Column]; !seen {
			references[fk.Column] = fk.RefTable + "." + fk.RefColumn
		}
	}

	table := Table{
		Name:        name,
		Description: l.tableComment(ctx, logger, name),
		Columns:     make([]Column, 0, len(columns)),
	}
	for _, ci := range columns {
		table.Columns = append(table.Columns, Column{
			Name:        ci.Name,
			Type:        ci.DataType,
			Description: l.columnComment(ctx, logger, name, ci.Name),
			PrimaryKey:  isPrimary[ci.Name],
			ForeignKey:  references[ci.Name],
		})
	}
	return table, nil
}

func (l *Loader) tableComment(ctx context.Context, logger *zap.Logger, table string) string {
	comment, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) (string, error) {
		c, err := l.Adapter.GetTableComment(ctx, table)
		return c, classifyError("get table comment", err)
	})
	if err != nil {
		logger.Warn("failed to read table comment", zap.Error(err))
		return ""
	}
	return comment
}

func (l *Loader) columnComment(ctx context.Context, logger *zap.Logger, table, column string) string {
	comment, err := withRetry(ctx, l.Retry, logger, func(ctx context.Context) (string, error) {
		c, err := l.Adapter.GetColumnComment(ctx, table, column)
		return c, classifyError("get column comment", err)
	})
	if err != nil {
		logger.Warn("failed to read column comment", zap.String("column", column), zap.Error(err))
		return ""
	}
	return comment
}

func (l *Loader) filterTables(allTables []string) []string {
	if len(l.TableFilters) == 0 {
		return allTables
	}
	present := make(map[string]bool, len(allTables))
	filtered := make([]string, 0, len(l.TableFilters))
	for _, table := range allTables {
		present[table] = true
		if _, ok := l.TableFilters[table]; ok {
			filtered = append(filtered, table)
		}
	}
	for table := range l.TableFilters {
		if !present[table] {
			l.logger().Warn("filtered table not found in database", zap.String("table", table))
		}
	}
	return filtered
}

func (l *Loader) filterColumns(tableName string, allColumns []database.ColumnInfo) []database.ColumnInfo {
	wanted := l.TableFilters[tableName]
	if len(wanted) == 0 {
		return allColumns
	}
	allowed := make(map[string]bool, len(wanted))
	for _, colName := range wanted {
		allowed[colName] = true
	}
	filtered := make([]database.ColumnInfo, 0, len(wanted))
	for _, colInfo := range allColumns {
		if allowed[colInfo.Name] {
			filtered = append(filtered, colInfo)
		}
	}
	return filtered
}
