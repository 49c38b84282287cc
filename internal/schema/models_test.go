package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleContext() *Context {
	return &Context{Tables: []Table{
		{Name: "Users", Description: "people", Columns: []Column{
			{Name: "id", Type: "int", PrimaryKey: true},
			{Name: "Email", Type: "text", Description: "login"},
		}},
		{Name: "orders", Columns: []Column{
			{Name: "id", Type: "int", PrimaryKey: true},
			{Name: "user_id", Type: "int", ForeignKey: "users.id"},
		}},
	}}
}

func TestContextLookups(t *testing.T) {
	sc := sampleContext()

	assert.True(t, sc.HasTable("users"))
	assert.True(t, sc.HasTable("ORDERS"))
	assert.False(t, sc.HasTable("payments"))
	assert.True(t, sc.HasColumn("USERS", "email"))
	assert.False(t, sc.HasColumn("orders", "email"))
	assert.False(t, sc.HasColumn("payments", "id"))

	assert.Equal(t, []string{"Users", "orders"}, sc.TableNames())
	assert.Equal(t, []string{"id", "Email", "id", "user_id"}, sc.AllColumns())
}

func TestNilContext(t *testing.T) {
	var sc *Context
	assert.True(t, sc.IsEmpty())
	assert.Nil(t, sc.Table("users"))
	assert.False(t, sc.HasColumn("users", "id"))
	assert.Nil(t, sc.TableNames())
	assert.Equal(t, "No schema provided.", sc.PromptString())
	assert.Equal(t, "No schema provided.", sc.CompactString())
}

func TestColumnPromptString(t *testing.T) {
	tests := []struct {
		col  Column
		want string
	}{
		{Column{Name: "id"}, "id"},
		{Column{Name: "id", Type: "int", PrimaryKey: true}, "id (int) [PK]"},
		{Column{Name: "user_id", Type: "int", ForeignKey: "users.id", Description: "owner"}, "user_id (int) [FK->users.id] -- owner"},
		{Column{Name: "x", PrimaryKey: true, ForeignKey: "y.z"}, "x [PK, FK->y.z]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.col.PromptString())
	}
}

func TestContextPromptString(t *testing.T) {
	want := "DATABASE SCHEMA:\n\n" +
		"TABLE: Users -- people\n" +
		"  - id (int) [PK]\n" +
		"  - Email (text) -- login\n\n" +
		"TABLE: orders\n" +
		"  - id (int) [PK]\n" +
		"  - user_id (int) [FK->users.id]\n"
	assert.Equal(t, want, sampleContext().PromptString())
}

func TestCompactString(t *testing.T) {
	assert.Equal(t, "Tables: Users(id, Email); orders(id, user_id)", sampleContext().CompactString())
}
