package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/domain/model"
)

func TestGetCoursesForUserNewestFirst(t *testing.T) {
	f := newFixture(t)
	repo := NewPgCourseRepository(f.db.Runner)
	later := f.db.AddCourse("CS201", 2025, 0)
	f.db.Register(f.student, later, model.RegistrationStudent, 3)

	courses, err := repo.GetCoursesForUser(f.ctx, f.student)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CS201", courses[0].Course.Name)
	assert.Equal(t, 3, courses[0].Registration.Section)
	assert.Equal(t, "CS101", courses[1].Course.Name)
	assert.Equal(t, courses[1].Course.TermID, courses[1].Term.ID)

	none, err := repo.GetCoursesForUser(f.ctx, f.outsider)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetProblemsInCourseFiltersHidden(t *testing.T) {
	f := newFixture(t)
	repo := NewPgCourseRepository(f.db.Runner)

	problems, err := repo.GetProblemsInCourse(f.ctx, f.student, f.courseID)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, f.visible, problems[0].ProblemID)

	problems, err = repo.GetProblemsInCourse(f.ctx, f.instructor, f.courseID)
	require.NoError(t, err)
	assert.Len(t, problems, 2)

	problems, err = repo.GetProblemsInCourse(f.ctx, f.outsider, f.courseID)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestGetProblemAndSubmissionReceiptsInCourse(t *testing.T) {
	f := newFixture(t)
	repo := NewPgCourseRepository(f.db.Runner)
	extra := f.db.AddProblem(f.courseID, "countVowels", true)

	addReceipt(t, f, f.student, f.visible, model.SubmissionTestsFailed, 2, 1)
	latest := addReceipt(t, f, f.student, f.visible, model.SubmissionTestsPassed, 2, 2)
	addReceipt(t, f, f.student2, extra, model.SubmissionTestsPassed, 2, 2)

	pairs, err := repo.GetProblemAndSubmissionReceiptsInCourse(f.ctx, f.student, f.courseID)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, f.visible, pairs[0].Problem.ProblemID)
	require.NotNil(t, pairs[0].Receipt)
	assert.Equal(t, latest.EventID, pairs[0].Receipt.EventID)

	assert.Equal(t, extra, pairs[1].Problem.ProblemID)
	assert.Nil(t, pairs[1].Receipt, "another user's receipt is not reported")
}
