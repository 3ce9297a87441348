package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/common"
)

func TestProblemsRequireRegistration(t *testing.T) {
	e := newEnv(t)

	problems, err := e.courses.Problems(e.ctx, e.student, e.courseID)
	require.NoError(t, err)
	assert.Len(t, problems, 1)

	withReceipts, err := e.courses.ProblemsWithReceipts(e.ctx, e.student, e.courseID)
	require.NoError(t, err)
	require.Len(t, withReceipts, 1)
	assert.Nil(t, withReceipts[0].Receipt)

	_, err = e.courses.Problems(e.ctx, e.outsider, e.courseID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = e.courses.ProblemsWithReceipts(e.ctx, e.outsider, e.courseID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUsersIsInstructorOnly(t *testing.T) {
	e := newEnv(t)

	users, err := e.courses.Users(e.ctx, e.instructor, e.courseID)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = e.courses.Users(e.ctx, e.student, e.courseID)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestImportUsersPermissions(t *testing.T) {
	e := newEnv(t)
	input := "Dana\tDoe\tdana\tpw\tdana@example.edu\n"

	_, err := e.courses.ImportUsers(e.ctx, e.student, e.courseID, strings.NewReader(input))
	assert.ErrorIs(t, err, common.ErrForbidden)

	n, err := e.courses.ImportUsers(e.ctx, e.instructor, e.courseID, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Operator tooling passes no user.
	n, err = e.courses.ImportUsers(e.ctx, 0, e.courseID, strings.NewReader("Eve\tE\teve\tpw\te@example.edu\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	courses, err := e.courses.CoursesForUser(e.ctx, e.outsider)
	require.NoError(t, err)
	assert.Empty(t, courses)
}
