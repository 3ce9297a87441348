package database

import (
	"reflect"
	"strings"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Column binds a column name to the field of T it is read into and written
// from. Keeping the name next to the field reference is what keeps select
// lists and scans aligned.
type Column[T any] struct {
	Name string
	Ref  func(*T) any
}

// Table is the declarative row mapping for one entity.
type Table[T any] struct {
	Name string
	// Key is the generated key column. It must be the first entry of Columns
	// and is left out of inserts. Empty when the key is supplied by the caller.
	Key     string
	Columns []Column[T]
}

// Select renders the column list, qualified by alias when it is not empty.
func (t *Table[T]) Select(alias string) string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if alias != "" {
			names[i] = alias + "." + c.Name
		} else {
			names[i] = c.Name
		}
	}
	return strings.Join(names, ", ")
}

// Refs returns scan destinations into v in Select order.
func (t *Table[T]) Refs(v *T) []any {
	refs := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		refs[i] = c.Ref(v)
	}
	return refs
}

// Load scans one row selected with Select.
func (t *Table[T]) Load(s Scanner) (*T, error) {
	v := new(T)
	if err := s.Scan(t.Refs(v)...); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *Table[T]) insertable() []Column[T] {
	if t.Key != "" {
		return t.Columns[1:]
	}
	return t.Columns
}

// InsertColumns lists the columns written by an insert.
func (t *Table[T]) InsertColumns() []string {
	cols := t.insertable()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Values returns the values of v for InsertColumns.
func (t *Table[T]) Values(v *T) []any {
	cols := t.insertable()
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = reflect.ValueOf(c.Ref(v)).Elem().Interface()
	}
	return values
}

// Assignments renders "col = $n, ..." for InsertColumns starting at $start.
func (t *Table[T]) Assignments(start int) string {
	cols := t.InsertColumns()
	parts := make([]string, len(cols))
	for i, name := range cols {
		parts[i] = name + " = " + Placeholders(start+i, 1)
	}
	return strings.Join(parts, ", ")
}

// InsertSQL renders an insert of one row without a RETURNING clause.
func (t *Table[T]) InsertSQL() string {
	cols := t.InsertColumns()
	return "INSERT INTO " + t.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" + Placeholders(1, len(cols)) + ")"
}
