package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/database/dbtest"
)

const testQueue = "cloudcoder:test_results:test"

type harness struct {
	db      *dbtest.DB
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	repo    repository.SubmissionRepository
	worker  *ResultWorker
	receipt *model.SubmissionReceipt
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d := dbtest.New(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	courseID := d.AddCourse("CS101", 2024, 1)
	userID := d.AddUser("alice", "x")
	d.Register(userID, courseID, model.RegistrationStudent, 0)
	problemID := d.AddProblem(courseID, "sumList", true)

	repo := repository.NewPgSubmissionRepository(d.Runner)
	receipt, err := repo.GetOrAddLatestSubmissionReceipt(context.Background(), userID, problemID)
	require.NoError(t, err)

	w := NewResultWorker(rdb, testQueue, d.Runner, repo, zaptest.NewLogger(t))
	w.pollTimeout = 100 * time.Millisecond
	return &harness{db: d, mr: mr, rdb: rdb, repo: repo, worker: w, receipt: receipt}
}

func (h *harness) report() *TestRunReport {
	return &TestRunReport{
		ReceiptEventID:    h.receipt.EventID,
		Status:            "TESTS_FAILED",
		NumTestsAttempted: 2,
		NumTestsPassed:    1,
		TestResults: []TestResultReport{
			{Outcome: "PASSED", Message: "ok"},
			{Outcome: "FAILED_ASSERTION", Message: "expected 3, got 4", Stdout: "4\n"},
		},
	}
}

func TestProcessAppliesReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := []byte(`{"receipt_event_id":` + itoa(h.receipt.EventID) + `,"status":"TESTS_PASSED","num_tests_attempted":1,"num_tests_passed":1,"test_results":[{"outcome":"PASSED","message":"ok"}]}`)
	require.NoError(t, h.worker.Process(ctx, payload))

	got, err := h.repo.GetSubmissionReceipt(ctx, h.receipt.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionTestsPassed, got.Status)
	assert.Equal(t, 1, got.NumTestsPassed)
	assert.Equal(t, h.receipt.LastEditEventID, got.LastEditEventID)

	results, err := h.repo.GetTestResults(ctx, h.receipt.EventID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.OutcomePassed, results[0].Outcome)
}

func TestProcessRejectsBadReports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.worker.Process(ctx, []byte("{not json")), common.ErrBadRequest)
	assert.ErrorIs(t, h.worker.Process(ctx, []byte(`{"status":"TESTS_PASSED"}`)), common.ErrValidation)

	r := h.report()
	r.Status = "DONE"
	assert.ErrorIs(t, h.worker.Process(ctx, mustJSON(t, r)), common.ErrValidation)

	r = h.report()
	r.TestResults[1].Outcome = "EXPLODED"
	assert.ErrorIs(t, h.worker.Process(ctx, mustJSON(t, r)), common.ErrValidation)

	assert.Equal(t, 0, h.db.Count("cc_test_results"))
}

func TestProcessUnknownReceiptStoresNothing(t *testing.T) {
	h := newHarness(t)

	r := h.report()
	r.ReceiptEventID = h.receipt.EventID + 1000
	err := h.worker.Process(context.Background(), mustJSON(t, r))
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Contains(t, err.Error(), "receipt "+itoa(r.ReceiptEventID))
	assert.Equal(t, 0, h.db.Count("cc_test_results"))
}

func TestStartConsumesPublishedReports(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.worker.Start(ctx)
	}()

	// A malformed message is logged and skipped.
	require.NoError(t, h.rdb.LPush(ctx, testQueue, "garbage").Err())
	require.NoError(t, Publish(ctx, h.rdb, testQueue, h.report()))

	assert.Eventually(t, func() bool {
		got, err := h.repo.GetSubmissionReceipt(context.Background(), h.receipt.EventID)
		return err == nil && got.Status == model.SubmissionTestsFailed
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, h.db.Count("cc_test_results"))

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPublishReportsUnavailableQueue(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	err := Publish(context.Background(), h.rdb, testQueue, h.report())
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}
