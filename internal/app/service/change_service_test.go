package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
)

func TestStoreAndReadChanges(t *testing.T) {
	e := newEnv(t)
	e.changes.now = func() time.Time { return time.UnixMilli(777) }

	stored, err := e.changes.Store(e.ctx, e.student, e.visible, StoreChangesRequest{Changes: []ChangeRequest{
		{Type: "FULL_TEXT", EndRow: 1, Text: "def f():\n"},
		{Type: "INSERT_TEXT", StartRow: 1, EndRow: 1, EndColumn: 4, Text: "pass", Timestamp: 900},
	}})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, int64(777), stored[0].Event.Timestamp)
	assert.Equal(t, int64(900), stored[1].Event.Timestamp)
	assert.Equal(t, model.ChangeFullText, stored[0].Type)

	since, err := e.changes.Since(e.ctx, e.student, e.visible, stored[0].EventID)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "pass", since[0].Text)

	latest, err := e.changes.Latest(e.ctx, e.student, e.visible, false)
	require.NoError(t, err)
	assert.Equal(t, stored[1].EventID, latest.EventID)

	full, err := e.changes.Latest(e.ctx, e.student, e.visible, true)
	require.NoError(t, err)
	assert.Equal(t, stored[0].EventID, full.EventID)

	got, err := e.changes.Get(e.ctx, e.student, stored[1].EventID)
	require.NoError(t, err)
	assert.Equal(t, "pass", got.Text)

	_, err = e.changes.Get(e.ctx, e.instructor, stored[1].EventID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStoreChangesValidation(t *testing.T) {
	e := newEnv(t)

	bad := []StoreChangesRequest{
		{},
		{Changes: []ChangeRequest{{Type: "DELETE_EVERYTHING"}}},
		{Changes: []ChangeRequest{{Type: "INSERT_TEXT", StartRow: 3, EndRow: 1}}},
		{Changes: []ChangeRequest{{Type: "INSERT_TEXT", StartColumn: -1}}},
	}
	for _, req := range bad {
		_, err := e.changes.Store(e.ctx, e.student, e.visible, req)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
	assert.Equal(t, 0, e.db.Count("cc_events"))

	_, err := e.changes.Store(e.ctx, e.student, e.hidden, StoreChangesRequest{Changes: []ChangeRequest{{Type: "FULL_TEXT"}}})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLatestWithoutChanges(t *testing.T) {
	e := newEnv(t)

	_, err := e.changes.Latest(e.ctx, e.student, e.visible, true)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
