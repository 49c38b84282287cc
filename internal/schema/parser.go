package schema

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError is returned when a schema document is structurally invalid.
type ParseError struct {
	Path string
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "schema parse error: " + e.Msg
	}
	return fmt.Sprintf("schema parse error: %s: %s", e.Path, e.Msg)
}

// ParseFile reads a JSON or YAML schema document from disk.
func ParseFile(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse converts a JSON or YAML schema document into a Context.
//
// The expected shape is
//
//	{"tables": [{"name": "t", "description": "...", "columns": [
//	    {"name": "c", "type": "int", "description": "...",
//	     "primary_key": true, "foreign_key": "other.id"}]}]}
//
// Empty input, a null document and a document without tables all produce an
// empty Context.
func Parse(data []byte) (*Context, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Context{}, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("invalid document: %v", err)}
	}
	if doc == nil {
		return &Context{}, nil
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &ParseError{Msg: fmt.Sprintf("schema must be an object, got %s", typeName(doc))}
	}

	rawTables, present := root["tables"]
	if !present || rawTables == nil {
		return &Context{}, nil
	}
	tableList, ok := rawTables.([]any)
	if !ok {
		return nil, &ParseError{Msg: fmt.Sprintf("schema 'tables' must be an array, got %s", typeName(rawTables))}
	}

	ctx := &Context{Tables: make([]Table, 0, len(tableList))}
	for i, raw := range tableList {
		t, err := parseTable(raw)
		if err != nil {
			return nil, &ParseError{Path: joinPath(fmt.Sprintf("table %d", i), err.Path), Msg: err.Msg}
		}
		ctx.Tables = append(ctx.Tables, t)
	}
	return ctx, nil
}

func parseTable(raw any) (Table, *ParseError) {
	data, ok := raw.(map[string]any)
	if !ok {
		return Table{}, &ParseError{Msg: fmt.Sprintf("table must be an object, got %s", typeName(raw))}
	}

	name, err := requiredName(data, "table")
	if err != nil {
		return Table{}, err
	}
	description, err := optionalString(data, "description")
	if err != nil {
		return Table{}, err
	}

	t := Table{Name: name, Description: description, Columns: []Column{}}

	rawColumns, present := data["columns"]
	if !present || rawColumns == nil {
		return t, nil
	}
	columnList, ok := rawColumns.([]any)
	if !ok {
		return Table{}, &ParseError{Msg: fmt.Sprintf("table 'columns' must be an array, got %s", typeName(rawColumns))}
	}

	for i, rc := range columnList {
		col, err := parseColumn(rc)
		if err != nil {
			return Table{}, &ParseError{Path: joinPath(fmt.Sprintf("column %d in table '%s'", i, name), err.Path), Msg: err.Msg}
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

func parseColumn(raw any) (Column, *ParseError) {
	data, ok := raw.(map[string]any)
	if !ok {
		return Column{}, &ParseError{Msg: fmt.Sprintf("column must be an object, got %s", typeName(raw))}
	}

	name, err := requiredName(data, "column")
	if err != nil {
		return Column{}, err
	}

	col := Column{Name: name}
	if col.Type, err = optionalString(data, "type"); err != nil {
		return Column{}, err
	}
	if col.Description, err = optionalString(data, "description"); err != nil {
		return Column{}, err
	}
	if col.ForeignKey, err = optionalString(data, "foreign_key"); err != nil {
		return Column{}, err
	}

	switch pk := data["primary_key"].(type) {
	case nil:
	case bool:
		col.PrimaryKey = pk
	default:
		return Column{}, &ParseError{Msg: fmt.Sprintf("column 'primary_key' must be a boolean, got %s", typeName(pk))}
	}
	return col, nil
}

func requiredName(data map[string]any, kind string) (string, *ParseError) {
	name, ok := data["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", &ParseError{Msg: fmt.Sprintf("%s must have a 'name' field of type string", kind)}
	}
	return strings.TrimSpace(name), nil
}

func optionalString(data map[string]any, key string) (string, *ParseError) {
	switch v := data[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", &ParseError{Msg: fmt.Sprintf("'%s' must be a string, got %s", key, typeName(v))}
	}
}

func joinPath(prefix, rest string) string {
	if rest == "" {
		return prefix
	}
	return prefix + ": " + rest
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
