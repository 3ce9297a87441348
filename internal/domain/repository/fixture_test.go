package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database/dbtest"
)

// fixture is one course with an instructor, two students, a visible and a
// hidden problem, and a user registered nowhere.
type fixture struct {
	db         *dbtest.DB
	ctx        context.Context
	courseID   int
	instructor int
	student    int
	student2   int
	outsider   int
	visible    int
	hidden     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	security.SetBcryptCost(bcrypt.MinCost)

	d := dbtest.New(t)
	f := &fixture{db: d, ctx: context.Background()}
	f.courseID = d.AddCourse("CS101", 2024, 1)

	hash, err := security.HashPassword("secret")
	require.NoError(t, err)
	f.instructor = d.AddUser("prof", hash)
	f.student = d.AddUser("alice", hash)
	f.student2 = d.AddUser("bob", hash)
	f.outsider = d.AddUser("mallory", hash)

	d.Register(f.instructor, f.courseID, model.RegistrationInstructor, 0)
	d.Register(f.student, f.courseID, model.RegistrationStudent, 1)
	d.Register(f.student2, f.courseID, model.RegistrationStudent, 1)

	f.visible = d.AddProblem(f.courseID, "sumList", true)
	f.hidden = d.AddProblem(f.courseID, "draftProblem", false)
	return f
}
