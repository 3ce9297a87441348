package repository

import (
	"context"
	"fmt"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

// storeEvents inserts the events of bearers in one batch and hands each
// bearer its generated event id, in order.
func storeEvents[B model.EventBearer](ctx context.Context, tx *database.Tx, bearers []B) error {
	values := make([][]any, len(bearers))
	for i, b := range bearers {
		values[i] = eventTable.Values(b.GetEvent())
	}
	ids, err := tx.InsertReturningKeys(ctx, eventsTable, eventTable.Key, eventTable.InsertColumns(), values)
	if err != nil {
		return fmt.Errorf("storing events: %w", err)
	}
	for i, b := range bearers {
		b.SetEventID(ids[i])
	}
	return nil
}

func insertChanges(ctx context.Context, tx *database.Tx, changes []*model.Change) error {
	if err := storeEvents(ctx, tx, changes); err != nil {
		return err
	}
	stmt, err := tx.Prepare(ctx, changeTable.InsertSQL())
	if err != nil {
		return fmt.Errorf("inserting changes: %w", err)
	}
	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, changeTable.Values(newChangeRow(c))...); err != nil {
			return fmt.Errorf("inserting change for event %d: %w", c.EventID, err)
		}
	}
	return nil
}

func insertSubmissionReceipt(ctx context.Context, tx *database.Tx, receipt *model.SubmissionReceipt) error {
	if err := storeEvents(ctx, tx, []*model.SubmissionReceipt{receipt}); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, receiptTable.InsertSQL(), receiptTable.Values(receipt)...); err != nil {
		return fmt.Errorf("inserting submission receipt: %w", err)
	}
	return nil
}

// insertTestResults stores results against the receipt with event id
// receiptEventID and assigns their generated ids.
func insertTestResults(ctx context.Context, tx *database.Tx, receiptEventID int, results []model.TestResult) error {
	values := make([][]any, len(results))
	for i := range results {
		results[i].SubmissionReceiptEventID = receiptEventID
		values[i] = testResultTable.Values(&results[i])
	}
	ids, err := tx.InsertReturningKeys(ctx, testResultsTable, testResultTable.Key, testResultTable.InsertColumns(), values)
	if err != nil {
		return fmt.Errorf("inserting test results: %w", err)
	}
	for i := range results {
		results[i].ID = ids[i]
	}
	return nil
}
