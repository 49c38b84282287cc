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
package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadSQLStatementsFromFile reads a batch file and splits it into statements.
func ReadSQLStatementsFromFile(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return SplitSQLStatements(string(content)), nil
}

// ReadSQLStatements reads a batch from r, typically stdin.
func ReadSQLStatements(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return SplitSQLStatements(string(content)), nil
}

// SplitSQLStatements splits on a semicolon that ends a line. Semicolons
// inside a line are left alone so the gate can still reject them.
func SplitSQLStatements(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	sqlStatements := strings.Split(content, ";\n")
	var trimmedStatements []string
	for _, stmt := range sqlStatements {
		trimmedStmt := strings.TrimSpace(stmt)
		trimmedStmt = strings.TrimSpace(strings.TrimSuffix(trimmedStmt, ";"))
		if trimmedStmt != "" {
			trimmedStatements = append(trimmedStatements, trimmedStmt)
		}
	}
	return trimmedStatements
}

// ReadInput returns arg when set, otherwise the content of filePath, otherwise
// everything readable from stdin.
func ReadInput(arg, filePath string, stdin io.Reader) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	}
	if stdin == nil {
		return "", fmt.Errorf("no input provided")
	}
	content, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(content), nil
}

// GetDefaultOutputFilePath is where schema dump writes when no file is given.
func GetDefaultOutputFilePath(dbName string) string {
	return fmt.Sprintf("%s_schema.json", dbName)
}

// CreateOutput opens path for writing. An empty path or "-" writes to stdout,
// which is never closed.
func CreateOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// ParseTablesFlag parses "t1[c1,c2],t2" into a table to columns map. A table
// without brackets maps to nil, meaning all columns.
func ParseTablesFlag(tablesFlag string) (map[string][]string, error) {
	tableColumns := make(map[string][]string)
	if tablesFlag == "" {
		return tableColumns, nil
	}

	// strip any whitespace
	tablesFlag = strings.ReplaceAll(tablesFlag, " ", "")

	// Split by comma, but only if the comma is not within square brackets
	parts := SplitOutsideBrackets(tablesFlag)

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		bracketStart := strings.Index(part, "[")
		if bracketStart == -1 {
			tableColumns[part] = nil
			continue
		}

		bracketEnd := strings.Index(part, "]")
		if bracketEnd == -1 {
			return nil, fmt.Errorf("missing closing bracket in: %s", part)
		}
		tableName := strings.TrimSpace(part[:bracketStart])
		if tableName == "" {
			return nil, fmt.Errorf("missing table name in: %s", part)
		}

		var trimmedColumns []string
		for _, col := range strings.Split(part[bracketStart+1:bracketEnd], ",") {
			if col = strings.TrimSpace(col); col != "" {
				trimmedColumns = append(trimmedColumns, col)
			}
		}
		tableColumns[tableName] = trimmedColumns
	}

	return tableColumns, nil
}

// SplitOutsideBrackets Helper function to split string by commas that are not within brackets
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	// Add the last part
	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
