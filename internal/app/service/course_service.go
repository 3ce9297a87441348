package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

type CourseService struct {
	courseRepo repository.CourseRepository
	userRepo   repository.UserRepository
	log        *zap.Logger
}

func NewCourseService(courseRepo repository.CourseRepository, userRepo repository.UserRepository, log *zap.Logger) *CourseService {
	return &CourseService{courseRepo: courseRepo, userRepo: userRepo, log: log}
}

func (s *CourseService) CoursesForUser(ctx context.Context, userID int) ([]model.CourseAndRegistration, error) {
	return s.courseRepo.GetCoursesForUser(ctx, userID)
}

// registration returns the user's registration in courseID, or
// common.ErrNotFound when the user is not registered there.
func (s *CourseService) registration(ctx context.Context, userID, courseID int) (*model.CourseRegistration, error) {
	courses, err := s.courseRepo.GetCoursesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, car := range courses {
		if car.Course.ID == courseID {
			reg := car.Registration
			return &reg, nil
		}
	}
	return nil, fmt.Errorf("course %d: %w", courseID, common.ErrNotFound)
}

func (s *CourseService) requireInstructor(ctx context.Context, userID, courseID int) error {
	reg, err := s.registration(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !reg.RegistrationType.AtLeast(model.RegistrationInstructor) {
		return fmt.Errorf("not instructor in course %d: %w", courseID, common.ErrForbidden)
	}
	return nil
}

// ProblemsWithReceipts lists the problems of a course the user may see,
// each with the user's latest submission receipt.
func (s *CourseService) ProblemsWithReceipts(ctx context.Context, userID, courseID int) ([]model.ProblemAndSubmissionReceipt, error) {
	if _, err := s.registration(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return s.courseRepo.GetProblemAndSubmissionReceiptsInCourse(ctx, userID, courseID)
}

func (s *CourseService) Problems(ctx context.Context, userID, courseID int) ([]model.Problem, error) {
	if _, err := s.registration(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return s.courseRepo.GetProblemsInCourse(ctx, userID, courseID)
}

// Users lists the users registered in a course. Only instructors may ask.
func (s *CourseService) Users(ctx context.Context, userID, courseID int) ([]model.User, error) {
	if err := s.requireInstructor(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return s.userRepo.GetUsersInCourse(ctx, courseID)
}

// ImportUsers registers the users listed in r as students of courseID.
// userID must be an instructor in the course; a zero userID skips the check
// for operator tooling.
func (s *CourseService) ImportUsers(ctx context.Context, userID, courseID int, r io.Reader) (int, error) {
	if userID != 0 {
		if err := s.requireInstructor(ctx, userID, courseID); err != nil {
			return 0, err
		}
	}
	n, err := s.userRepo.ImportUsers(ctx, courseID, r)
	if err != nil {
		return 0, err
	}
	s.log.Info("imported users", zap.Int("course_id", courseID), zap.Int("count", n))
	return n, nil
}
