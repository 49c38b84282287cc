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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/text-ql/internal/config"
	"github.com/GoogleCloudPlatform/text-ql/internal/report"
	"github.com/GoogleCloudPlatform/text-ql/internal/utils"
	"github.com/GoogleCloudPlatform/text-ql/internal/validation"
)

// ErrPolicyRejected is returned when at least one statement did not pass the gate.
var ErrPolicyRejected = errors.New("statement rejected by policy")

var (
	validateFile       string
	validateFormat     string
	validateSuggest    bool
	writerPlaceholders bool
	validateSchema     schemaFlags
)

var validateCmd = &cobra.Command{
	Use:   "validate [sql]",
	Short: "Run the policy gate on one SQL statement",
	Long: `Runs the policy gate on one statement read from the argument, --file or stdin,
and prints the verdict. Exits non-zero when the statement does not pass.`,
	Example: `  textql validate "SELECT * FROM users" --schema ./schema.yaml
  echo "DELETE FROM users" | textql validate --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateFormat != "text" && validateFormat != "json" {
		return fmt.Errorf("unsupported format %q: expected text or json", validateFormat)
	}

	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	input, err := utils.ReadInput(arg, validateFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	gate, err := newGate()
	if err != nil {
		return err
	}
	sc, err := validateSchema.resolve(cmd.Context())
	if err != nil {
		return err
	}

	out := gate.Run(input, sc, writerPlaceholders)
	logger.Info("statement gated",
		zap.String("status", string(out.Status)),
		zap.String("statement_type", string(out.StatementType)),
		zap.Bool("passed", out.Passed),
		zap.Int("warnings", len(out.Warnings)))

	var suggestions map[string][]string
	if validateSuggest && !sc.IsEmpty() {
		distance := config.GetConfig().Policy.SuggestionDistance
		suggestions = validation.SuggestCorrectionsWithin(input, sc, gate.PlaceholderPattern(), distance)
	}

	if validateFormat == "json" {
		err = report.JSON(cmd.OutOrStdout(), report.Result{RunID: runID, Output: out, Suggestions: suggestions})
	} else {
		err = report.Text(cmd.OutOrStdout(), out, suggestions)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !out.Passed {
		return ErrPolicyRejected
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Read the statement from this file instead of the argument or stdin")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text or json)")
	validateCmd.Flags().BoolVar(&validateSuggest, "suggest", false, "Suggest close schema names for unknown identifiers")
	validateCmd.Flags().BoolVar(&writerPlaceholders, "writer-placeholders", false, "Mark the statement as carrying placeholders reported by the writer")
	validateSchema.register(validateCmd)
}
