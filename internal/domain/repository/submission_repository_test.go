package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

func TestGetOrAddLatestSubmissionReceiptIsIdempotent(t *testing.T) {
	f := newFixture(t)
	repo := &pgSubmissionRepository{runner: f.db.Runner, now: func() time.Time { return time.UnixMilli(424242) }}

	first, err := repo.GetOrAddLatestSubmissionReceipt(f.ctx, f.student, f.visible)
	require.NoError(t, err)
	require.NotZero(t, first.EventID)
	assert.Equal(t, model.SubmissionStarted, first.Status)
	assert.Equal(t, -1, first.LastEditEventID)
	assert.Equal(t, int64(424242), first.Event.Timestamp)
	assert.Equal(t, model.EventSubmit, first.Event.Type)

	second, err := repo.GetOrAddLatestSubmissionReceipt(f.ctx, f.student, f.visible)
	require.NoError(t, err)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, 1, f.db.Count("cc_submission_receipts"))
	assert.Equal(t, 1, f.db.Count("cc_events"))
}

func TestGetOrAddLatestSubmissionReceiptReturnsNewest(t *testing.T) {
	f := newFixture(t)
	repo := NewPgSubmissionRepository(f.db.Runner)

	addReceipt(t, f, f.student, f.visible, model.SubmissionTestsFailed, 3, 1)
	newest := addReceipt(t, f, f.student, f.visible, model.SubmissionTestsPassed, 3, 3)
	addReceipt(t, f, f.student2, f.visible, model.SubmissionTestsFailed, 3, 0)

	got, err := repo.GetOrAddLatestSubmissionReceipt(f.ctx, f.student, f.visible)
	require.NoError(t, err)
	assert.Equal(t, newest.EventID, got.EventID)
	assert.Equal(t, model.SubmissionTestsPassed, got.Status)
	assert.Equal(t, 3, got.NumTestsPassed)
}

func TestInsertSubmissionReceiptWithResults(t *testing.T) {
	f := newFixture(t)
	repo := NewPgSubmissionRepository(f.db.Runner)

	receipt := model.NewSubmissionReceipt(f.student, f.visible, 5000, model.SubmissionTestsFailed, 17, 2, 1)
	results := []model.TestResult{
		{Outcome: model.OutcomePassed, Message: "ok", Stdout: "3\n"},
		{Outcome: model.OutcomeFailedAssertion, Message: "expected 0", Stderr: "assert"},
	}
	require.NoError(t, repo.InsertSubmissionReceipt(f.ctx, receipt, results))
	require.NotZero(t, receipt.EventID)
	assert.Equal(t, receipt.EventID, receipt.Event.ID)

	got, err := repo.GetSubmissionReceipt(f.ctx, receipt.EventID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *receipt, *got)

	stored, err := repo.GetTestResults(f.ctx, receipt.EventID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, model.OutcomeFailedAssertion, stored[1].Outcome)
	assert.Equal(t, receipt.EventID, stored[0].SubmissionReceiptEventID)
	assert.Equal(t, results[0].ID, stored[0].ID)

	missing, err := repo.GetSubmissionReceipt(f.ctx, receipt.EventID+50)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplaceTestResults(t *testing.T) {
	f := newFixture(t)
	repo := NewPgSubmissionRepository(f.db.Runner)

	receipt := model.NewSubmissionReceipt(f.student, f.visible, 5000, model.SubmissionStarted, -1, 0, 0)
	require.NoError(t, repo.InsertSubmissionReceipt(f.ctx, receipt, []model.TestResult{{Outcome: model.OutcomeInternalError}}))

	replacement := []model.TestResult{
		{Outcome: model.OutcomePassed},
		{Outcome: model.OutcomePassed},
		{Outcome: model.OutcomeFailedFromTimeout, Message: "timed out"},
	}
	require.NoError(t, repo.ReplaceTestResults(f.ctx, receipt.EventID, replacement))

	stored, err := repo.GetTestResults(f.ctx, receipt.EventID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "timed out", stored[2].Message)
	assert.Equal(t, 3, f.db.Count("cc_test_results"))
}

func TestUpdateSubmissionReceiptTouchesOnlyThatReceipt(t *testing.T) {
	f := newFixture(t)
	repo := NewPgSubmissionRepository(f.db.Runner)

	mine := addReceipt(t, f, f.student, f.visible, model.SubmissionStarted, 0, 0)
	other := addReceipt(t, f, f.student2, f.visible, model.SubmissionStarted, 0, 0)

	mine.Status = model.SubmissionTestsPassed
	mine.NumTestsAttempted = 4
	mine.NumTestsPassed = 4
	require.NoError(t, repo.UpdateSubmissionReceipt(f.ctx, mine))

	got, err := repo.GetSubmissionReceipt(f.ctx, mine.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionTestsPassed, got.Status)
	assert.Equal(t, 4, got.NumTestsPassed)

	untouched, err := repo.GetSubmissionReceipt(f.ctx, other.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStarted, untouched.Status)
	assert.Equal(t, 0, untouched.NumTestsAttempted)

	ghost := &model.SubmissionReceipt{EventID: 9999, Status: model.SubmissionTestsFailed}
	assert.ErrorIs(t, repo.UpdateSubmissionReceipt(f.ctx, ghost), common.ErrNotFound)
}

func TestReplaceAndUpdateShareOuterTransaction(t *testing.T) {
	f := newFixture(t)
	repo := NewPgSubmissionRepository(f.db.Runner)
	receipt := addReceipt(t, f, f.student, f.visible, model.SubmissionStarted, 0, 0)

	_, err := database.Run(f.ctx, f.db.Runner, database.NewWork("apply", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := repo.ReplaceTestResults(ctx, receipt.EventID, []model.TestResult{{Outcome: model.OutcomePassed}}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, repo.UpdateSubmissionReceipt(ctx, &model.SubmissionReceipt{EventID: 9999})
	}))
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 0, f.db.Count("cc_test_results"))
}
