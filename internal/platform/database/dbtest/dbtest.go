// Package dbtest provides a throwaway SQLite store carrying the production
// schema, for tests of code built on the database package.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

// DB is an isolated store for one test.
type DB struct {
	SQL     *sql.DB
	Runner  *database.Runner
	Metrics *prometheus.Registry
	t       testing.TB
}

// sqliteSchema rewrites the PostgreSQL key columns into SQLite rowid aliases.
func sqliteSchema() string {
	return strings.ReplaceAll(database.Schema, "SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT")
}

// New opens a fresh database file under t.TempDir and applies the schema.
func New(t testing.TB) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cloudcoder.db")
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.ApplySchema(context.Background(), db, sqliteSchema()))

	reg := prometheus.NewRegistry()
	registry := database.NewRegistry(db)
	runner := database.NewRunner(registry, zaptest.NewLogger(t), database.NewMetrics(reg, registry))
	return &DB{SQL: db, Runner: runner, Metrics: reg, t: t}
}

func (d *DB) insert(key, query string, args ...any) int {
	d.t.Helper()
	var id int
	require.NoError(d.t, d.SQL.QueryRow(query+" RETURNING "+key, args...).Scan(&id))
	return id
}

// AddUser stores a user whose password hash is hash.
func (d *DB) AddUser(username, hash string) int {
	return d.insert("id", "INSERT INTO cc_users (username, password_hash) VALUES ($1, $2)", username, hash)
}

// AddCourse stores a course in a new term.
func (d *DB) AddCourse(name string, year, termSeq int) int {
	termID := d.insert("id", "INSERT INTO cc_terms (name, seq) VALUES ($1, $2)", fmt.Sprintf("term-%d", termSeq), termSeq)
	return d.insert("id", "INSERT INTO cc_courses (name, title, url, term_id, year) VALUES ($1, $2, $3, $4, $5)",
		name, name+" title", "http://example.edu/"+name, termID, year)
}

// Register enrols userID in courseID.
func (d *DB) Register(userID, courseID int, level model.CourseRegistrationType, section int) int {
	return d.insert("id", "INSERT INTO cc_course_registrations (course_id, user_id, registration_type, section) VALUES ($1, $2, $3, $4)",
		courseID, userID, level, section)
}

// AddProblem stores a problem with placeholder descriptive data.
func (d *DB) AddProblem(courseID int, testname string, visible bool) int {
	return d.insert("problem_id", `INSERT INTO cc_problems (course_id, when_assigned, when_due, visible, problem_type, testname,
		brief_description, description, skeleton, schema_version, author_name, author_email, author_website,
		timestamp_utc, license) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		courseID, int64(1000), int64(2000), visible, model.ProblemTypePythonFunction, testname,
		"brief "+testname, "describe "+testname, "def "+testname+"():\n    pass\n", 1,
		"A. Author", "author@example.edu", "http://example.edu", int64(1500), model.LicenseCCAttribShareAlike30)
}

// SetSetting stores a configuration setting.
func (d *DB) SetSetting(name, value string) {
	d.t.Helper()
	_, err := d.SQL.Exec("INSERT INTO cc_configuration_settings (name, value) VALUES ($1, $2)", name, value)
	require.NoError(d.t, err)
}

// Count returns the number of rows in table.
func (d *DB) Count(table string) int {
	d.t.Helper()
	var n int
	require.NoError(d.t, d.SQL.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
