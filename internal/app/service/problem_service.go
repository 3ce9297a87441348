package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/xmlconv"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	courses     *CourseService
	log         *zap.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, courses *CourseService, log *zap.Logger) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, courses: courses, log: log}
}

// Get returns the problem if the user may see it.
func (s *ProblemService) Get(ctx context.Context, userID, problemID int) (*model.Problem, error) {
	problem, err := s.problemRepo.GetProblemForUser(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, fmt.Errorf("problem %d: %w", problemID, common.ErrNotFound)
	}
	return problem, nil
}

// instructorProblem returns the problem when the user is an instructor in
// its course.
func (s *ProblemService) instructorProblem(ctx context.Context, userID, problemID int) (*model.Problem, error) {
	problem, err := s.Get(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if err := s.courses.requireInstructor(ctx, userID, problem.CourseID); err != nil {
		return nil, err
	}
	return problem, nil
}

func (s *ProblemService) TestCases(ctx context.Context, userID, problemID int) ([]model.TestCase, error) {
	testCases, err := s.problemRepo.GetTestCasesForInstructor(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	if testCases == nil {
		return nil, fmt.Errorf("test cases for problem %d: %w", problemID, common.ErrNotFound)
	}
	return testCases, nil
}

func (s *ProblemService) Summary(ctx context.Context, userID, problemID int) (*model.ProblemSummary, error) {
	problem, err := s.instructorProblem(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	return s.problemRepo.CreateProblemSummary(ctx, problem)
}

type StoreProblemRequest struct {
	Problem   model.Problem    `json:"problem"`
	TestCases []model.TestCase `json:"test_cases" validate:"dive"`
}

// Store inserts or replaces a problem and its test cases in courseID.
// Authorization failures come back as *common.AuthError.
func (s *ProblemService) Store(ctx context.Context, userID, courseID int, req StoreProblemRequest) (*model.ProblemAndTestCaseList, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Problem.Testname == "" {
		return nil, fmt.Errorf("%w: problem testname is required", common.ErrValidation)
	}
	list := &model.ProblemAndTestCaseList{Problem: req.Problem, TestCases: req.TestCases}
	stored, err := s.problemRepo.StoreProblemAndTestCaseList(ctx, list, courseID, userID)
	if err != nil {
		return nil, err
	}
	s.log.Info("stored problem",
		zap.Int("problem_id", stored.Problem.ProblemID),
		zap.Int("course_id", courseID),
		zap.Int("test_cases", len(stored.TestCases)))
	return stored, nil
}

// ExportFile is a problem rendered in the XML interchange format.
type ExportFile struct {
	Filename string
	Content  []byte
}

func export(problem *model.Problem, testCases []model.TestCase) (*ExportFile, error) {
	list := &model.ProblemAndTestCaseList{Problem: *problem, TestCases: testCases}
	var buf bytes.Buffer
	if err := xmlconv.Write(&buf, list.Data()); err != nil {
		return nil, fmt.Errorf("failed to write problem XML: %w", err)
	}
	name := slug.Make(problem.Testname)
	if name == "" {
		name = fmt.Sprintf("problem-%d", problem.ProblemID)
	}
	return &ExportFile{Filename: name + ".xml", Content: buf.Bytes()}, nil
}

// Export renders a problem the user instructs, secret test cases included.
func (s *ProblemService) Export(ctx context.Context, userID, problemID int) (*ExportFile, error) {
	problem, err := s.instructorProblem(ctx, userID, problemID)
	if err != nil {
		return nil, err
	}
	testCases, err := s.problemRepo.GetTestCasesForProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return export(problem, testCases)
}

// ExportByID renders any stored problem without an access check.
func (s *ProblemService) ExportByID(ctx context.Context, problemID int) (*ExportFile, error) {
	problem, err := s.problemRepo.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, fmt.Errorf("problem %d: %w", problemID, common.ErrNotFound)
	}
	testCases, err := s.problemRepo.GetTestCasesForProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return export(problem, testCases)
}

// Import reads an XML problem and stores it as a new problem of courseID on
// behalf of userID.
func (s *ProblemService) Import(ctx context.Context, userID, courseID int, r io.Reader) (*model.ProblemAndTestCaseList, error) {
	data, err := xmlconv.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	list := model.NewProblemAndTestCaseList(courseID, data)
	return s.Store(ctx, userID, courseID, StoreProblemRequest{Problem: list.Problem, TestCases: list.TestCases})
}
