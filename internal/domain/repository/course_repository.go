package repository

import (
	"context"
	"fmt"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type CourseRepository interface {
	// GetCoursesForUser lists the user's registrations, newest term first.
	GetCoursesForUser(ctx context.Context, userID int) ([]model.CourseAndRegistration, error)
	// GetProblemsInCourse lists the problems of courseID userID may see.
	GetProblemsInCourse(ctx context.Context, userID, courseID int) ([]model.Problem, error)
	// GetProblemAndSubmissionReceiptsInCourse pairs each visible problem with
	// the user's most recent receipt for it (nil when there is none).
	GetProblemAndSubmissionReceiptsInCourse(ctx context.Context, userID, courseID int) ([]model.ProblemAndSubmissionReceipt, error)
}

type pgCourseRepository struct {
	runner *database.Runner
}

func NewPgCourseRepository(runner *database.Runner) CourseRepository {
	return &pgCourseRepository{runner: runner}
}

// visibleToRegistrant is the predicate letting instructors see every problem
// and students only visible ones. It expects aliases p and the registration alias.
func visibleToRegistrant(reg string) string {
	return fmt.Sprintf("(%s.registration_type >= %d OR p.visible = TRUE)", reg, int(model.RegistrationInstructor))
}

func coursesForUser(ctx context.Context, tx *database.Tx, userID int) ([]model.CourseAndRegistration, error) {
	query := "SELECT " + courseTable.Select("c") + ", " + termTable.Select("t") + ", " + registrationTable.Select("r") +
		" FROM " + coursesTable + " c, " + termsTable + " t, " + courseRegistrationsTable + " r" +
		" WHERE c.id = r.course_id AND c.term_id = t.id AND r.user_id = $1" +
		" ORDER BY c.year DESC, t.seq DESC"
	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CourseAndRegistration
	for rows.Next() {
		var car model.CourseAndRegistration
		if err := loadJoined(rows, courseTable.Refs(&car.Course), termTable.Refs(&car.Term), registrationTable.Refs(&car.Registration)); err != nil {
			return nil, err
		}
		result = append(result, car)
	}
	return result, rows.Err()
}

func problemsInCourse(ctx context.Context, tx *database.Tx, userID, courseID int) ([]model.Problem, error) {
	query := "SELECT " + problemTable.Select("p") +
		" FROM " + problemsTable + " p, " + coursesTable + " c, " + courseRegistrationsTable + " r" +
		" WHERE p.course_id = c.id AND r.course_id = c.id AND r.user_id = $1 AND c.id = $2" +
		" AND " + visibleToRegistrant("r") +
		" ORDER BY p.problem_id"
	rows, err := tx.Query(ctx, query, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		p, err := problemTable.Load(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}

func (r *pgCourseRepository) GetCoursesForUser(ctx context.Context, userID int) ([]model.CourseAndRegistration, error) {
	return database.Run(ctx, r.runner, database.NewWork("retrieving courses for user", func(ctx context.Context, tx *database.Tx) ([]model.CourseAndRegistration, error) {
		courses, err := coursesForUser(ctx, tx, userID)
		if err != nil {
			return nil, fmt.Errorf("pgCourseRepository.GetCoursesForUser: %w", err)
		}
		return courses, nil
	}))
}

func (r *pgCourseRepository) GetProblemsInCourse(ctx context.Context, userID, courseID int) ([]model.Problem, error) {
	return database.Run(ctx, r.runner, database.NewWork("retrieving problems for course", func(ctx context.Context, tx *database.Tx) ([]model.Problem, error) {
		problems, err := problemsInCourse(ctx, tx, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("pgCourseRepository.GetProblemsInCourse: %w", err)
		}
		return problems, nil
	}))
}

func (r *pgCourseRepository) GetProblemAndSubmissionReceiptsInCourse(ctx context.Context, userID, courseID int) ([]model.ProblemAndSubmissionReceipt, error) {
	return database.Run(ctx, r.runner, database.NewWork("retrieving problems and submission receipts for course", func(ctx context.Context, tx *database.Tx) ([]model.ProblemAndSubmissionReceipt, error) {
		problems, err := problemsInCourse(ctx, tx, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("pgCourseRepository.GetProblemAndSubmissionReceiptsInCourse: %w", err)
		}

		query := "SELECT " + receiptTable.Select("sr") + ", " + eventTable.Select("e") +
			" FROM " + submissionReceiptsTable + " sr, " + problemsTable + " p, " + eventsTable + " e, " + courseRegistrationsTable + " cr" +
			" WHERE cr.user_id = $1 AND cr.course_id = $2" +
			" AND " + visibleToRegistrant("cr") +
			" AND p.course_id = cr.course_id AND e.problem_id = p.problem_id AND e.user_id = cr.user_id AND sr.event_id = e.id" +
			" ORDER BY e.id"
		rows, err := tx.Query(ctx, query, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("pgCourseRepository.GetProblemAndSubmissionReceiptsInCourse: %w", err)
		}
		defer rows.Close()

		latest := make(map[int]*model.SubmissionReceipt)
		for rows.Next() {
			receipt, err := loadReceiptAndEvent(rows)
			if err != nil {
				return nil, fmt.Errorf("pgCourseRepository.GetProblemAndSubmissionReceiptsInCourse scan: %w", err)
			}
			latest[receipt.Event.ProblemID] = receipt
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		result := make([]model.ProblemAndSubmissionReceipt, len(problems))
		for i, p := range problems {
			result[i] = model.ProblemAndSubmissionReceipt{Problem: p, Receipt: latest[p.ProblemID]}
		}
		return result, nil
	}))
}
