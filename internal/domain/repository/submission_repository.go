package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type SubmissionRepository interface {
	// InsertSubmissionReceipt stores receipt (event first) and its results.
	InsertSubmissionReceipt(ctx context.Context, receipt *model.SubmissionReceipt, results []model.TestResult) error
	// GetOrAddLatestSubmissionReceipt returns the user's most recent receipt
	// for the problem, storing a STARTED receipt first when there is none.
	// Two concurrent first calls may both insert.
	GetOrAddLatestSubmissionReceipt(ctx context.Context, userID, problemID int) (*model.SubmissionReceipt, error)
	GetSubmissionReceipt(ctx context.Context, eventID int) (*model.SubmissionReceipt, error)
	GetTestResults(ctx context.Context, receiptEventID int) ([]model.TestResult, error)
	// ReplaceTestResults deletes the receipt's results and stores results.
	ReplaceTestResults(ctx context.Context, receiptEventID int, results []model.TestResult) error
	// UpdateSubmissionReceipt rewrites status and counts of the receipt
	// identified by receipt.EventID.
	UpdateSubmissionReceipt(ctx context.Context, receipt *model.SubmissionReceipt) error
}

type pgSubmissionRepository struct {
	runner *database.Runner
	now    func() time.Time
}

func NewPgSubmissionRepository(runner *database.Runner) SubmissionRepository {
	return &pgSubmissionRepository{runner: runner, now: time.Now}
}

func loadReceiptAndEvent(s database.Scanner) (*model.SubmissionReceipt, error) {
	receipt := new(model.SubmissionReceipt)
	if err := loadJoined(s, receiptTable.Refs(receipt), eventTable.Refs(&receipt.Event)); err != nil {
		return nil, err
	}
	return receipt, nil
}

var selectReceiptAndEvent = "SELECT " + receiptTable.Select("sr") + ", " + eventTable.Select("e") +
	" FROM " + submissionReceiptsTable + " sr, " + eventsTable + " e WHERE sr.event_id = e.id"

func latestReceipt(ctx context.Context, tx *database.Tx, userID, problemID int) (*model.SubmissionReceipt, error) {
	query := selectReceiptAndEvent + " AND e.user_id = $1 AND e.problem_id = $2 ORDER BY e.id DESC LIMIT 1"
	receipt, err := loadReceiptAndEvent(tx.QueryRow(ctx, query, userID, problemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return receipt, err
}

func (r *pgSubmissionRepository) InsertSubmissionReceipt(ctx context.Context, receipt *model.SubmissionReceipt, results []model.TestResult) error {
	_, err := database.Run(ctx, r.runner, database.NewWork("inserting submission receipt", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := insertSubmissionReceipt(ctx, tx, receipt); err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.InsertSubmissionReceipt: %w", err)
		}
		if err := insertTestResults(ctx, tx, receipt.EventID, results); err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.InsertSubmissionReceipt: %w", err)
		}
		return struct{}{}, nil
	}))
	return err
}

func (r *pgSubmissionRepository) GetOrAddLatestSubmissionReceipt(ctx context.Context, userID, problemID int) (*model.SubmissionReceipt, error) {
	return database.Run(ctx, r.runner, database.NewWork("adding initial submission receipt if necessary", func(ctx context.Context, tx *database.Tx) (*model.SubmissionReceipt, error) {
		receipt, err := latestReceipt(ctx, tx, userID, problemID)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetOrAddLatestSubmissionReceipt: %w", err)
		}
		if receipt != nil {
			return receipt, nil
		}

		receipt = model.NewSubmissionReceipt(userID, problemID, r.now().UnixMilli(), model.SubmissionStarted, -1, 0, 0)
		if err := insertSubmissionReceipt(ctx, tx, receipt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetOrAddLatestSubmissionReceipt: %w", err)
		}
		return receipt, nil
	}))
}

func (r *pgSubmissionRepository) GetSubmissionReceipt(ctx context.Context, eventID int) (*model.SubmissionReceipt, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting submission receipt", func(ctx context.Context, tx *database.Tx) (*model.SubmissionReceipt, error) {
		receipt, err := loadReceiptAndEvent(tx.QueryRow(ctx, selectReceiptAndEvent+" AND e.id = $1", eventID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionReceipt: %w", err)
		}
		return receipt, nil
	}))
}

func (r *pgSubmissionRepository) GetTestResults(ctx context.Context, receiptEventID int) ([]model.TestResult, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting test results", func(ctx context.Context, tx *database.Tx) ([]model.TestResult, error) {
		query := "SELECT " + testResultTable.Select("") + " FROM " + testResultsTable +
			" WHERE submission_receipt_event_id = $1 ORDER BY id"
		rows, err := tx.Query(ctx, query, receiptEventID)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetTestResults: %w", err)
		}
		defer rows.Close()

		var results []model.TestResult
		for rows.Next() {
			tr, err := testResultTable.Load(rows)
			if err != nil {
				return nil, fmt.Errorf("pgSubmissionRepository.GetTestResults scan: %w", err)
			}
			results = append(results, *tr)
		}
		return results, rows.Err()
	}))
}

func (r *pgSubmissionRepository) ReplaceTestResults(ctx context.Context, receiptEventID int, results []model.TestResult) error {
	_, err := database.Run(ctx, r.runner, database.NewWork("storing test results", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if _, err := tx.Exec(ctx, "DELETE FROM "+testResultsTable+" WHERE submission_receipt_event_id = $1", receiptEventID); err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.ReplaceTestResults delete: %w", err)
		}
		if err := insertTestResults(ctx, tx, receiptEventID, results); err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.ReplaceTestResults: %w", err)
		}
		return struct{}{}, nil
	}))
	return err
}

func (r *pgSubmissionRepository) UpdateSubmissionReceipt(ctx context.Context, receipt *model.SubmissionReceipt) error {
	_, err := database.Run(ctx, r.runner, database.NewWork("updating submission receipt", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		query := "UPDATE " + submissionReceiptsTable +
			" SET status = $1, num_tests_attempted = $2, num_tests_passed = $3 WHERE event_id = $4"
		res, err := tx.Exec(ctx, query, receipt.Status, receipt.NumTestsAttempted, receipt.NumTestsPassed, receipt.EventID)
		if err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.UpdateSubmissionReceipt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.UpdateSubmissionReceipt: %w", err)
		}
		if n != 1 {
			return struct{}{}, fmt.Errorf("pgSubmissionRepository.UpdateSubmissionReceipt: receipt %d: %w", receipt.EventID, common.ErrNotFound)
		}
		return struct{}{}, nil
	}))
	return err
}
