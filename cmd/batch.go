package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/text-ql/internal/report"
	"github.com/GoogleCloudPlatform/text-ql/internal/utils"
)

var (
	batchFile               string
	batchFormat             string
	batchConcurrency        int
	batchWriterPlaceholders bool
	batchSchema             schemaFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the policy gate on every statement of a SQL file",
	Long: `Splits the input on semicolons that end a line and gates each statement
concurrently. Exits non-zero when any statement does not pass.`,
	Example: `  textql batch --file ./generated.sql --schema ./schema.yaml --format table`,
	Args:    cobra.NoArgs,
	RunE:    runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchFormat != "table" && batchFormat != "json" {
		return fmt.Errorf("unsupported format %q: expected table or json", batchFormat)
	}

	var statements []string
	var err error
	if batchFile != "" {
		statements, err = utils.ReadSQLStatementsFromFile(batchFile)
	} else {
		statements, err = utils.ReadSQLStatements(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	gate, err := newGate()
	if err != nil {
		return err
	}
	sc, err := batchSchema.resolve(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([]report.Row, len(statements))
	var g errgroup.Group
	g.SetLimit(max(batchConcurrency, 1))
	for i, stmt := range statements {
		i, stmt := i, stmt
		g.Go(func() error {
			rows[i] = report.Row{Index: i + 1, Output: gate.Run(stmt, sc, batchWriterPlaceholders)}
			return nil
		})
	}
	// The gate never fails; Wait only joins the workers.
	_ = g.Wait()

	batch := report.NewBatch(runID, rows)
	logger.Info("batch gated", zap.Int("statements", batch.Total), zap.Int("failed", batch.Failed))

	if batchFormat == "json" {
		err = report.JSON(cmd.OutOrStdout(), batch)
	} else {
		err = report.Table(cmd.OutOrStdout(), rows)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batch.Failed > 0 {
		return fmt.Errorf("%w: %d of %d statements", ErrPolicyRejected, batch.Failed, batch.Total)
	}
	return nil
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "SQL file to gate (defaults to stdin)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "table", "Output format (table or json)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", runtime.NumCPU(), "Number of statements gated at once")
	batchCmd.Flags().BoolVar(&batchWriterPlaceholders, "writer-placeholders", false, "Mark every statement as carrying placeholders reported by the writer")
	batchSchema.register(batchCmd)
}
