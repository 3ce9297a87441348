package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

// Locker serializes work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problems       *ProblemService
	locker         Locker
	log            *zap.Logger
}

// NewSubmissionService builds the service. locker may be nil, in which case
// concurrent first requests for a receipt are not serialized.
func NewSubmissionService(subRepo repository.SubmissionRepository, problems *ProblemService, locker Locker, log *zap.Logger) *SubmissionService {
	return &SubmissionService{submissionRepo: subRepo, problems: problems, locker: locker, log: log}
}

func receiptLockKey(userID, problemID int) string {
	return fmt.Sprintf("cloudcoder:lock:receipt:%d:%d", userID, problemID)
}

// LatestReceipt returns the user's latest receipt for a problem they may
// see, creating a STARTED receipt on first access.
func (s *SubmissionService) LatestReceipt(ctx context.Context, userID, problemID int) (*model.SubmissionReceipt, error) {
	if _, err := s.problems.Get(ctx, userID, problemID); err != nil {
		return nil, err
	}

	if s.locker == nil {
		return s.submissionRepo.GetOrAddLatestSubmissionReceipt(ctx, userID, problemID)
	}
	var receipt *model.SubmissionReceipt
	err := s.locker.WithLock(ctx, receiptLockKey(userID, problemID), func(ctx context.Context) error {
		var err error
		receipt, err = s.submissionRepo.GetOrAddLatestSubmissionReceipt(ctx, userID, problemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ReceiptWithResults is a receipt together with its test results.
type ReceiptWithResults struct {
	Receipt     *model.SubmissionReceipt `json:"receipt"`
	TestResults []model.TestResult       `json:"test_results"`
}

// Receipt returns a receipt owned by userID.
func (s *SubmissionService) Receipt(ctx context.Context, userID, eventID int) (*ReceiptWithResults, error) {
	receipt, err := s.submissionRepo.GetSubmissionReceipt(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if receipt == nil || receipt.Event.UserID != userID {
		return nil, fmt.Errorf("submission %d: %w", eventID, common.ErrNotFound)
	}
	results, err := s.submissionRepo.GetTestResults(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &ReceiptWithResults{Receipt: receipt, TestResults: results}, nil
}
