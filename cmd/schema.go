package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/text-ql/internal/config"
	"github.com/GoogleCloudPlatform/text-ql/internal/report"
	"github.com/GoogleCloudPlatform/text-ql/internal/schema"
	"github.com/GoogleCloudPlatform/text-ql/internal/utils"
)

// ErrSchemaWarnings is returned by schema check --strict when the schema has problems.
var ErrSchemaWarnings = errors.New("schema has warnings")

// schemaFlags selects where a command takes its schema from.
type schemaFlags struct {
	file   string
	fromDB bool
	tables string
}

func (s *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.file, "schema", "", "Schema file (JSON or YAML) to check identifiers against")
	cmd.Flags().BoolVar(&s.fromDB, "schema-from-db", false, "Load the schema from the configured database")
	cmd.Flags().StringVar(&s.tables, "tables", "", "With --schema-from-db, limit the schema to these tables: 'table1[col1,col2],table2'")
	cmd.MarkFlagsMutuallyExclusive("schema", "schema-from-db")
}

// resolve returns the selected schema, or nil when none was requested.
func (s *schemaFlags) resolve(ctx context.Context) (*schema.Context, error) {
	switch {
	case s.file != "":
		return readSchemaFile(s.file)
	case s.fromDB:
		return loadSchemaFromDB(ctx, s.tables)
	default:
		return nil, nil
	}
}

func readSchemaFile(path string) (*schema.Context, error) {
	sc, err := schema.ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range schema.Validate(sc) {
		logger.Warn("schema warning", zap.String("file", path), zap.String("warning", w))
	}
	return sc, nil
}

func loadSchemaFromDB(ctx context.Context, tablesFlag string) (*schema.Context, error) {
	tableFilters, err := utils.ParseTablesFlag(tablesFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --tables flag: %w", err)
	}

	db, err := setupDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	loader := schema.NewLoader(db, logger)
	loader.TableFilters = tableFilters
	sc, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	logger.Info("schema loaded from database", zap.Int("tables", len(sc.Tables)))
	return sc, nil
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect schema documents and live database schemas",
}

var (
	dumpTables  string
	dumpOutFile string
)

var schemaDumpCmd = &cobra.Command{
	Use:     "dump",
	Short:   "Write the live database schema as a JSON schema document",
	Example: `  textql schema dump --dialect cloudsqlpostgres --username user --password pass --database mydb --cloudsql-instance-connection-name my-project:my-region:my-instance --tables "users[id,email],orders"`,
	RunE:    runSchemaDump,
}

func runSchemaDump(cmd *cobra.Command, args []string) error {
	outputFile := dumpOutFile
	if outputFile == "" {
		outputFile = utils.GetDefaultOutputFilePath(config.GetConfig().Database.DBName)
	}

	sc, err := loadSchemaFromDB(cmd.Context(), dumpTables)
	if err != nil {
		return err
	}

	w, err := utils.CreateOutput(outputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := report.JSON(w, sc); err != nil {
		w.Close()
		return fmt.Errorf("failed to write schema: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	if outputFile != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema written to: %s\n", outputFile)
	}
	return nil
}

var (
	checkSchemaFile string
	checkStrict     bool
)

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse a schema document and report structural problems",
	RunE:  runSchemaCheck,
}

func runSchemaCheck(cmd *cobra.Command, args []string) error {
	sc, err := schema.ParseFile(checkSchemaFile)
	if err != nil {
		return err
	}

	warnings := schema.Validate(sc)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d tables, %d columns\n", len(sc.Tables), len(sc.AllColumns()))
	for _, w := range warnings {
		fmt.Fprintf(out, "  - %s\n", w)
	}

	if len(warnings) > 0 && checkStrict {
		return fmt.Errorf("%w: %d found", ErrSchemaWarnings, len(warnings))
	}
	return nil
}

func init() {
	schemaDumpCmd.Flags().StringVar(&dumpTables, "tables", "", "Comma-separated list of tables and columns to include: 'table1[col1,col2],table2'")
	schemaDumpCmd.Flags().StringVarP(&dumpOutFile, "out_file", "o", "", "File path to write the schema to, '-' for stdout (defaults to <database>_schema.json)")

	schemaCheckCmd.Flags().StringVar(&checkSchemaFile, "schema", "", "Schema file (JSON or YAML)")
	schemaCheckCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit non-zero when the schema has warnings")
	_ = schemaCheckCmd.MarkFlagRequired("schema")

	schemaCmd.AddCommand(schemaDumpCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
}
