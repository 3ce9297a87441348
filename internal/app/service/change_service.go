package service

import (
	"context"
	"fmt"
	"time"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

type ChangeService struct {
	changeRepo repository.ChangeRepository
	problems   *ProblemService
	now        func() time.Time
}

func NewChangeService(changeRepo repository.ChangeRepository, problems *ProblemService) *ChangeService {
	return &ChangeService{changeRepo: changeRepo, problems: problems, now: time.Now}
}

type ChangeRequest struct {
	Type        string `json:"type" validate:"required,oneof=INSERT_TEXT INSERT_LINES REMOVE_TEXT REMOVE_LINES FULL_TEXT"`
	StartRow    int    `json:"start_row" validate:"gte=0"`
	EndRow      int    `json:"end_row" validate:"gtefield=StartRow"`
	StartColumn int    `json:"start_column" validate:"gte=0"`
	EndColumn   int    `json:"end_column" validate:"gte=0"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type StoreChangesRequest struct {
	Changes []ChangeRequest `json:"changes" validate:"required,min=1,dive"`
}

// Store records the user's edits to a problem, oldest first, and returns
// them with their assigned event ids.
func (s *ChangeService) Store(ctx context.Context, userID, problemID int, req StoreChangesRequest) ([]*model.Change, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.problems.Get(ctx, userID, problemID); err != nil {
		return nil, err
	}

	changes := make([]*model.Change, len(req.Changes))
	for i, cr := range req.Changes {
		changeType, _ := model.ParseChangeType(cr.Type)
		ts := cr.Timestamp
		if ts == 0 {
			ts = s.now().UnixMilli()
		}
		changes[i] = &model.Change{
			Type:        changeType,
			StartRow:    cr.StartRow,
			EndRow:      cr.EndRow,
			StartColumn: cr.StartColumn,
			EndColumn:   cr.EndColumn,
			Text:        cr.Text,
			Event: model.Event{
				UserID:    userID,
				ProblemID: problemID,
				Type:      model.EventChange,
				Timestamp: ts,
			},
		}
	}
	if err := s.changeRepo.StoreChanges(ctx, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Since returns the user's changes after baseRev.
func (s *ChangeService) Since(ctx context.Context, userID, problemID, baseRev int) ([]model.Change, error) {
	if _, err := s.problems.Get(ctx, userID, problemID); err != nil {
		return nil, err
	}
	return s.changeRepo.GetAllChangesNewerThan(ctx, userID, problemID, baseRev)
}

// Latest returns the most recent change, or the most recent full-text
// change when fullText is set.
func (s *ChangeService) Latest(ctx context.Context, userID, problemID int, fullText bool) (*model.Change, error) {
	if _, err := s.problems.Get(ctx, userID, problemID); err != nil {
		return nil, err
	}
	var change *model.Change
	var err error
	if fullText {
		change, err = s.changeRepo.GetMostRecentFullTextChange(ctx, userID, problemID)
	} else {
		change, err = s.changeRepo.GetMostRecentChange(ctx, userID, problemID)
	}
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, fmt.Errorf("no changes for problem %d: %w", problemID, common.ErrNotFound)
	}
	return change, nil
}

// Get returns one change owned by userID.
func (s *ChangeService) Get(ctx context.Context, userID, eventID int) (*model.Change, error) {
	change, err := s.changeRepo.GetChange(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if change == nil || change.Event.UserID != userID {
		return nil, fmt.Errorf("change %d: %w", eventID, common.ErrNotFound)
	}
	return change, nil
}
