package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type ChangeRepository interface {
	GetMostRecentChange(ctx context.Context, userID, problemID int) (*model.Change, error)
	GetMostRecentFullTextChange(ctx context.Context, userID, problemID int) (*model.Change, error)
	GetChange(ctx context.Context, eventID int) (*model.Change, error)
	// GetAllChangesNewerThan returns the user's changes to the problem with
	// event id greater than baseRev, oldest first.
	GetAllChangesNewerThan(ctx context.Context, userID, problemID, baseRev int) ([]model.Change, error)
	// StoreChanges stores the events and then the changes, assigning event ids.
	StoreChanges(ctx context.Context, changes []*model.Change) error
}

type pgChangeRepository struct {
	runner *database.Runner
}

func NewPgChangeRepository(runner *database.Runner) ChangeRepository {
	return &pgChangeRepository{runner: runner}
}

var selectChangeAndEvent = "SELECT " + changeTable.Select("c") + ", " + eventTable.Select("e") +
	" FROM " + changesTable + " c, " + eventsTable + " e WHERE c.event_id = e.id"

func loadChangeAndEvent(s database.Scanner) (*model.Change, error) {
	row := new(changeRow)
	if err := loadJoined(s, changeTable.Refs(row), eventTable.Refs(&row.Event)); err != nil {
		return nil, err
	}
	return row.change(), nil
}

func (r *pgChangeRepository) queryOne(ctx context.Context, desc, query string, args ...any) (*model.Change, error) {
	return database.Run(ctx, r.runner, database.NewWork(desc, func(ctx context.Context, tx *database.Tx) (*model.Change, error) {
		change, err := loadChangeAndEvent(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("pgChangeRepository: %s: %w", desc, err)
		}
		return change, nil
	}))
}

func (r *pgChangeRepository) GetMostRecentChange(ctx context.Context, userID, problemID int) (*model.Change, error) {
	query := selectChangeAndEvent + " AND e.user_id = $1 AND e.problem_id = $2 ORDER BY e.id DESC LIMIT 1"
	return r.queryOne(ctx, "retrieving most recent change", query, userID, problemID)
}

func (r *pgChangeRepository) GetMostRecentFullTextChange(ctx context.Context, userID, problemID int) (*model.Change, error) {
	query := selectChangeAndEvent + " AND e.user_id = $1 AND e.problem_id = $2 AND c.type = $3 ORDER BY e.id DESC LIMIT 1"
	return r.queryOne(ctx, "retrieving most recent full text change", query, userID, problemID, model.ChangeFullText)
}

func (r *pgChangeRepository) GetChange(ctx context.Context, eventID int) (*model.Change, error) {
	return r.queryOne(ctx, "retrieving change", selectChangeAndEvent+" AND e.id = $1", eventID)
}

func (r *pgChangeRepository) GetAllChangesNewerThan(ctx context.Context, userID, problemID, baseRev int) ([]model.Change, error) {
	return database.Run(ctx, r.runner, database.NewWork("retrieving changes newer than base revision", func(ctx context.Context, tx *database.Tx) ([]model.Change, error) {
		query := selectChangeAndEvent + " AND e.user_id = $1 AND e.problem_id = $2 AND e.id > $3 ORDER BY e.id ASC"
		rows, err := tx.Query(ctx, query, userID, problemID, baseRev)
		if err != nil {
			return nil, fmt.Errorf("pgChangeRepository.GetAllChangesNewerThan: %w", err)
		}
		defer rows.Close()

		var changes []model.Change
		for rows.Next() {
			c, err := loadChangeAndEvent(rows)
			if err != nil {
				return nil, fmt.Errorf("pgChangeRepository.GetAllChangesNewerThan scan: %w", err)
			}
			changes = append(changes, *c)
		}
		return changes, rows.Err()
	}))
}

func (r *pgChangeRepository) StoreChanges(ctx context.Context, changes []*model.Change) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := database.Run(ctx, r.runner, database.NewWork("storing changes", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := insertChanges(ctx, tx, changes); err != nil {
			return struct{}{}, fmt.Errorf("pgChangeRepository.StoreChanges: %w", err)
		}
		return struct{}{}, nil
	}))
	return err
}
