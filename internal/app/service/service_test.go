package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/cache"
	"cloudcoder/internal/platform/database/dbtest"
)

// env wires every service against a throwaway store and an in-memory Redis.
type env struct {
	db  *dbtest.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client
	ctx context.Context

	auth        *AuthService
	courses     *CourseService
	problems    *ProblemService
	changes     *ChangeService
	submissions *SubmissionService
	settings    *SettingsService

	courseID   int
	instructor int
	student    int
	outsider   int
	visible    int
	hidden     int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	security.SetBcryptCost(bcrypt.MinCost)
	security.InitJWT([]byte("test-secret"), time.Hour)

	d := dbtest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	log := zaptest.NewLogger(t)

	userRepo := repository.NewPgUserRepository(d.Runner)
	courses := NewCourseService(repository.NewPgCourseRepository(d.Runner), userRepo, log)
	problems := NewProblemService(repository.NewPgProblemRepository(d.Runner), courses, log)

	e := &env{
		db:          d,
		mr:          mr,
		rdb:         rdb,
		ctx:         context.Background(),
		auth:        NewAuthService(userRepo, log),
		courses:     courses,
		problems:    problems,
		changes:     NewChangeService(repository.NewPgChangeRepository(d.Runner), problems),
		submissions: NewSubmissionService(repository.NewPgSubmissionRepository(d.Runner), problems, cache.NewLocker(rdb, 5*time.Second, log), log),
		settings:    NewSettingsService(repository.NewPgSettingRepository(d.Runner), rdb, time.Minute, log),
	}

	hash, err := security.HashPassword("secret")
	require.NoError(t, err)
	e.courseID = d.AddCourse("CS201", 2024, 2)
	e.instructor = d.AddUser("prof", hash)
	e.student = d.AddUser("alice", hash)
	e.outsider = d.AddUser("mallory", hash)
	d.Register(e.instructor, e.courseID, model.RegistrationInstructor, 0)
	d.Register(e.student, e.courseID, model.RegistrationStudent, 1)
	e.visible = d.AddProblem(e.courseID, "Sum List", true)
	e.hidden = d.AddProblem(e.courseID, "Draft", false)
	return e
}
