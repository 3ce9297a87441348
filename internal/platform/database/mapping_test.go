package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/platform/database"
	"cloudcoder/internal/platform/database/dbtest"
)

type term struct {
	ID   int
	Name string
	Seq  int
}

var terms = &database.Table[term]{
	Name: "cc_terms",
	Key:  "id",
	Columns: []database.Column[term]{
		{Name: "id", Ref: func(t *term) any { return &t.ID }},
		{Name: "name", Ref: func(t *term) any { return &t.Name }},
		{Name: "seq", Ref: func(t *term) any { return &t.Seq }},
	},
}

func TestTableRendersColumnLists(t *testing.T) {
	assert.Equal(t, "id, name, seq", terms.Select(""))
	assert.Equal(t, "t.id, t.name, t.seq", terms.Select("t"))
	assert.Equal(t, []string{"name", "seq"}, terms.InsertColumns())
	assert.Equal(t, "name = $3, seq = $4", terms.Assignments(3))
	assert.Equal(t, "INSERT INTO cc_terms (name, seq) VALUES ($1, $2)", terms.InsertSQL())
	assert.Equal(t, []any{"Fall", 3}, terms.Values(&term{ID: 9, Name: "Fall", Seq: 3}))
}

func TestInsertReturningKeysAndLoad(t *testing.T) {
	d := dbtest.New(t)

	rows := [][]any{
		terms.Values(&term{Name: "Winter", Seq: 0}),
		terms.Values(&term{Name: "Spring", Seq: 1}),
		terms.Values(&term{Name: "Summer", Seq: 2}),
	}
	loaded, err := database.Run(context.Background(), d.Runner, database.NewWork("terms", func(ctx context.Context, tx *database.Tx) ([]term, error) {
		keys, err := tx.InsertReturningKeys(ctx, terms.Name, terms.Key, terms.InsertColumns(), rows)
		if err != nil {
			return nil, err
		}
		require.Len(t, keys, 3)
		assert.Less(t, keys[0], keys[1])
		assert.Less(t, keys[1], keys[2])

		var out []term
		for _, k := range keys {
			v, err := terms.Load(tx.QueryRow(ctx, "SELECT "+terms.Select("")+" FROM cc_terms WHERE id = $1", k))
			if err != nil {
				return nil, err
			}
			out = append(out, *v)
		}
		return out, nil
	}))
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "Winter", loaded[0].Name)
	assert.Equal(t, "Summer", loaded[2].Name)
	assert.Equal(t, 2, loaded[2].Seq)
}

func TestInsertReturningKeysRejectsRaggedRows(t *testing.T) {
	d := dbtest.New(t)

	_, err := database.Run(context.Background(), d.Runner, database.NewWork("ragged", func(ctx context.Context, tx *database.Tx) ([]int, error) {
		return tx.InsertReturningKeys(ctx, terms.Name, terms.Key, terms.InsertColumns(), [][]any{{"only-name"}})
	}))
	assert.Error(t, err)
	assert.Equal(t, 0, d.Count("cc_terms"))
}
