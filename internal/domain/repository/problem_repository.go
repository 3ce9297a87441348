package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type ProblemRepository interface {
	// GetProblemForUser returns the problem when userID is registered in its
	// course and is an instructor or the problem is visible. Otherwise nil.
	GetProblemForUser(ctx context.Context, userID, problemID int) (*model.Problem, error)
	GetProblem(ctx context.Context, problemID int) (*model.Problem, error)
	AddProblem(ctx context.Context, problem *model.Problem) error
	AddTestCases(ctx context.Context, problemID int, testCases []model.TestCase) error
	GetTestCasesForProblem(ctx context.Context, problemID int) ([]model.TestCase, error)
	// GetTestCasesForInstructor returns nil unless userID is an instructor in
	// the problem's course and the problem has test cases.
	GetTestCasesForInstructor(ctx context.Context, userID, problemID int) ([]model.TestCase, error)
	// StoreProblemAndTestCaseList inserts or updates the problem and replaces
	// its test cases. The caller must be an instructor in courseID and the
	// problem must belong to courseID; otherwise *common.AuthError is returned
	// before anything is written.
	StoreProblemAndTestCaseList(ctx context.Context, list *model.ProblemAndTestCaseList, courseID, userID int) (*model.ProblemAndTestCaseList, error)
	CreateProblemSummary(ctx context.Context, problem *model.Problem) (*model.ProblemSummary, error)
}

type pgProblemRepository struct {
	runner *database.Runner
}

func NewPgProblemRepository(runner *database.Runner) ProblemRepository {
	return &pgProblemRepository{runner: runner}
}

func (r *pgProblemRepository) GetProblemForUser(ctx context.Context, userID, problemID int) (*model.Problem, error) {
	return database.Run(ctx, r.runner, database.NewWork("retrieving problem", func(ctx context.Context, tx *database.Tx) (*model.Problem, error) {
		query := "SELECT " + problemTable.Select("p") +
			" FROM " + problemsTable + " p, " + coursesTable + " c, " + courseRegistrationsTable + " r" +
			" WHERE p.problem_id = $1 AND c.id = p.course_id AND r.course_id = c.id AND r.user_id = $2" +
			" AND " + visibleToRegistrant("r")
		p, err := problemTable.Load(tx.QueryRow(ctx, query, problemID, userID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("pgProblemRepository.GetProblemForUser: %w", err)
		}
		return p, nil
	}))
}

func findProblem(ctx context.Context, tx *database.Tx, problemID int) (*model.Problem, error) {
	query := "SELECT " + problemTable.Select("") + " FROM " + problemsTable + " WHERE problem_id = $1"
	p, err := problemTable.Load(tx.QueryRow(ctx, query, problemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *pgProblemRepository) GetProblem(ctx context.Context, problemID int) (*model.Problem, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting problem", func(ctx context.Context, tx *database.Tx) (*model.Problem, error) {
		p, err := findProblem(ctx, tx, problemID)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetProblem: %w", err)
		}
		return p, nil
	}))
}

func insertProblem(ctx context.Context, tx *database.Tx, p *model.Problem) error {
	ids, err := tx.InsertReturningKeys(ctx, problemsTable, problemTable.Key, problemTable.InsertColumns(), [][]any{problemTable.Values(p)})
	if err != nil {
		return err
	}
	p.ProblemID = ids[0]
	return nil
}

func updateProblem(ctx context.Context, tx *database.Tx, p *model.Problem) error {
	cols := problemTable.InsertColumns()
	query := "UPDATE " + problemsTable + " SET " + problemTable.Assignments(1) +
		" WHERE problem_id = " + database.Placeholders(len(cols)+1, 1)
	res, err := tx.Exec(ctx, query, append(problemTable.Values(p), p.ProblemID)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("could not update problem %d (no such problem in database?)", p.ProblemID)
	}
	return nil
}

func insertTestCases(ctx context.Context, tx *database.Tx, problemID int, testCases []model.TestCase) error {
	values := make([][]any, len(testCases))
	for i := range testCases {
		testCases[i].ProblemID = problemID
		values[i] = testCaseTable.Values(&testCases[i])
	}
	ids, err := tx.InsertReturningKeys(ctx, testCasesTable, testCaseTable.Key, testCaseTable.InsertColumns(), values)
	if err != nil {
		return err
	}
	for i := range testCases {
		testCases[i].TestCaseID = ids[i]
	}
	return nil
}

func (r *pgProblemRepository) AddProblem(ctx context.Context, problem *model.Problem) error {
	_, err := database.Run(ctx, r.runner, database.NewWork("adding problem", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := insertProblem(ctx, tx, problem); err != nil {
			return struct{}{}, fmt.Errorf("pgProblemRepository.AddProblem: %w", err)
		}
		return struct{}{}, nil
	}))
	return err
}

func (r *pgProblemRepository) AddTestCases(ctx context.Context, problemID int, testCases []model.TestCase) error {
	_, err := database.Run(ctx, r.runner, database.NewWork("adding test cases", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := insertTestCases(ctx, tx, problemID, testCases); err != nil {
			return struct{}{}, fmt.Errorf("pgProblemRepository.AddTestCases: %w", err)
		}
		return struct{}{}, nil
	}))
	return err
}

func scanTestCases(rows *sql.Rows) ([]model.TestCase, error) {
	defer rows.Close()
	var testCases []model.TestCase
	for rows.Next() {
		tc, err := testCaseTable.Load(rows)
		if err != nil {
			return nil, err
		}
		testCases = append(testCases, *tc)
	}
	return testCases, rows.Err()
}

func (r *pgProblemRepository) GetTestCasesForProblem(ctx context.Context, problemID int) ([]model.TestCase, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting test cases for problem", func(ctx context.Context, tx *database.Tx) ([]model.TestCase, error) {
		query := "SELECT " + testCaseTable.Select("") + " FROM " + testCasesTable + " WHERE problem_id = $1 ORDER BY test_case_id"
		rows, err := tx.Query(ctx, query, problemID)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesForProblem: %w", err)
		}
		testCases, err := scanTestCases(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesForProblem scan: %w", err)
		}
		return testCases, nil
	}))
}

func (r *pgProblemRepository) GetTestCasesForInstructor(ctx context.Context, userID, problemID int) ([]model.TestCase, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting test cases for instructor", func(ctx context.Context, tx *database.Tx) ([]model.TestCase, error) {
		query := "SELECT " + testCaseTable.Select("tc") +
			" FROM " + testCasesTable + " tc, " + problemsTable + " p, " + courseRegistrationsTable + " cr" +
			" WHERE tc.problem_id = p.problem_id AND p.problem_id = $1 AND p.course_id = cr.course_id" +
			" AND cr.user_id = $2 AND cr.registration_type >= $3" +
			" ORDER BY tc.test_case_id"
		rows, err := tx.Query(ctx, query, problemID, userID, model.RegistrationInstructor)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesForInstructor: %w", err)
		}
		testCases, err := scanTestCases(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesForInstructor scan: %w", err)
		}
		if len(testCases) == 0 {
			return nil, nil
		}
		return testCases, nil
	}))
}

func (r *pgProblemRepository) StoreProblemAndTestCaseList(ctx context.Context, list *model.ProblemAndTestCaseList, courseID, userID int) (*model.ProblemAndTestCaseList, error) {
	return database.RunAuth(ctx, r.runner, database.NewAuthWork("storing problem and test cases", func(ctx context.Context, tx *database.AuthTx) (*model.ProblemAndTestCaseList, error) {
		if list.Problem.CourseID != courseID {
			return nil, tx.Deny("problem does not match course")
		}

		courses, err := coursesForUser(ctx, tx.Tx, userID)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList: %w", err)
		}
		isInstructor := false
		for _, car := range courses {
			if car.Registration.CourseID == courseID && car.Registration.RegistrationType.AtLeast(model.RegistrationInstructor) {
				isInstructor = true
				break
			}
		}
		if !isInstructor {
			return nil, tx.Deny("not instructor in course")
		}

		if list.Problem.ProblemID == 0 {
			if err := insertProblem(ctx, tx.Tx, &list.Problem); err != nil {
				return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList insert: %w", err)
			}
		} else {
			var storedCourseID int
			err := tx.QueryRow(ctx, "SELECT course_id FROM "+problemsTable+" WHERE problem_id = $1", list.Problem.ProblemID).Scan(&storedCourseID)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && storedCourseID != courseID) {
				return nil, tx.Deny("problem does not match course")
			}
			if err != nil {
				return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList owning course: %w", err)
			}
			if err := updateProblem(ctx, tx.Tx, &list.Problem); err != nil {
				return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList update: %w", err)
			}
			if _, err := tx.Exec(ctx, "DELETE FROM "+testCasesTable+" WHERE problem_id = $1", list.Problem.ProblemID); err != nil {
				return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList delete test cases: %w", err)
			}
		}
		if err := insertTestCases(ctx, tx.Tx, list.Problem.ProblemID, list.TestCases); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.StoreProblemAndTestCaseList test cases: %w", err)
		}
		return list, nil
	}))
}

// betterReceipt reports whether cur should replace prev as a user's best
// receipt: TESTS_PASSED beats anything else, then more passed tests win.
func betterReceipt(cur, prev *model.SubmissionReceipt) bool {
	if prev == nil {
		return true
	}
	curPassed := cur.Status == model.SubmissionTestsPassed
	prevPassed := prev.Status == model.SubmissionTestsPassed
	if curPassed != prevPassed {
		return curPassed
	}
	return cur.NumTestsPassed > prev.NumTestsPassed
}

// summarize folds best receipts into the started/passed/completed counts.
func summarize(summary *model.ProblemSummary, best map[int]*model.SubmissionReceipt) {
	for _, receipt := range best {
		summary.NumStarted++
		if receipt.Status == model.SubmissionTestsPassed {
			summary.NumCompleted++
			summary.NumPassedAtLeastOneTest++
		} else if receipt.NumTestsPassed > 0 {
			summary.NumPassedAtLeastOneTest++
		}
	}
}

func (r *pgProblemRepository) CreateProblemSummary(ctx context.Context, problem *model.Problem) (*model.ProblemSummary, error) {
	return database.Run(ctx, r.runner, database.NewWork("creating problem summary", func(ctx context.Context, tx *database.Tx) (*model.ProblemSummary, error) {
		summary := &model.ProblemSummary{Problem: *problem}

		countQuery := "SELECT COUNT(*) FROM " + courseRegistrationsTable + " WHERE course_id = $1 AND registration_type = $2"
		if err := tx.QueryRow(ctx, countQuery, problem.CourseID, model.RegistrationStudent).Scan(&summary.NumStudents); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.CreateProblemSummary count students: %w", err)
		}

		rows, err := tx.Query(ctx, selectReceiptAndEvent+" AND e.problem_id = $1 ORDER BY e.id", problem.ProblemID)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.CreateProblemSummary: %w", err)
		}
		defer rows.Close()

		best := make(map[int]*model.SubmissionReceipt)
		for rows.Next() {
			receipt, err := loadReceiptAndEvent(rows)
			if err != nil {
				return nil, fmt.Errorf("pgProblemRepository.CreateProblemSummary scan: %w", err)
			}
			if betterReceipt(receipt, best[receipt.Event.UserID]) {
				best[receipt.Event.UserID] = receipt
			}
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.CreateProblemSummary: %w", err)
		}

		summarize(summary, best)
		return summary, nil
	}))
}
