package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/database"
)

// TestResultReport is one test outcome as reported by a builder.
type TestResultReport struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

// TestRunReport is the message a builder pushes after (re)testing a
// submission.
type TestRunReport struct {
	ReceiptEventID    int                `json:"receipt_event_id"`
	Status            string             `json:"status"`
	NumTestsAttempted int                `json:"num_tests_attempted"`
	NumTestsPassed    int                `json:"num_tests_passed"`
	TestResults       []TestResultReport `json:"test_results"`
}

// ResultWorker applies test run reports taken from a Redis list.
type ResultWorker struct {
	rdb            *redis.Client
	queue          string
	runner         *database.Runner
	submissionRepo repository.SubmissionRepository
	log            *zap.Logger
	pollTimeout    time.Duration
}

func NewResultWorker(rdb *redis.Client, queue string, runner *database.Runner, subRepo repository.SubmissionRepository, log *zap.Logger) *ResultWorker {
	return &ResultWorker{
		rdb:            rdb,
		queue:          queue,
		runner:         runner,
		submissionRepo: subRepo,
		log:            log,
		pollTimeout:    time.Second,
	}
}

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info("result worker started", zap.String("queue", w.queue))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("result worker stopping")
			return
		default:
		}

		item, err := w.rdb.BRPop(ctx, w.pollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.log.Error("failed to pop from result queue", zap.String("queue", w.queue), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		// item is [queue, value]
		if len(item) < 2 || item[1] == "" {
			w.log.Warn("result queue returned an empty message")
			continue
		}

		if err := w.Process(ctx, []byte(item[1])); err != nil {
			w.log.Error("failed to apply test run report", zap.Error(err))
		}
	}
}

// Process decodes one report and stores it: the receipt's test results are
// replaced and its status and counts updated, in a single transaction.
func (w *ResultWorker) Process(ctx context.Context, payload []byte) error {
	var report TestRunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("%w: invalid test run report: %v", common.ErrBadRequest, err)
	}
	receipt, results, err := report.decode()
	if err != nil {
		return err
	}

	_, err = database.Run(ctx, w.runner, database.NewWork("applying test run report", func(ctx context.Context, tx *database.Tx) (struct{}, error) {
		if err := w.submissionRepo.ReplaceTestResults(ctx, receipt.EventID, results); err != nil {
			return struct{}{}, err
		}
		if err := w.submissionRepo.UpdateSubmissionReceipt(ctx, receipt); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}))
	if err != nil {
		return fmt.Errorf("receipt %d: %w", receipt.EventID, err)
	}
	w.log.Debug("applied test run report", zap.Int("receipt_event_id", receipt.EventID), zap.String("status", report.Status))
	return nil
}

func (r *TestRunReport) decode() (*model.SubmissionReceipt, []model.TestResult, error) {
	if r.ReceiptEventID <= 0 {
		return nil, nil, fmt.Errorf("%w: receipt_event_id is required", common.ErrValidation)
	}
	status, ok := model.ParseSubmissionStatus(r.Status)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown submission status %q", common.ErrValidation, r.Status)
	}
	receipt := &model.SubmissionReceipt{
		EventID:           r.ReceiptEventID,
		Status:            status,
		NumTestsAttempted: r.NumTestsAttempted,
		NumTestsPassed:    r.NumTestsPassed,
	}

	results := make([]model.TestResult, len(r.TestResults))
	for i, tr := range r.TestResults {
		outcome, ok := model.ParseTestOutcome(tr.Outcome)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown test outcome %q", common.ErrValidation, tr.Outcome)
		}
		results[i] = model.TestResult{Outcome: outcome, Message: tr.Message, Stdout: tr.Stdout, Stderr: tr.Stderr}
	}
	return receipt, results, nil
}

// Publish pushes a report onto the queue consumed by ResultWorker.
func Publish(ctx context.Context, rdb *redis.Client, queue string, report *TestRunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding test run report: %w", err)
	}
	if err := rdb.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("enqueueing test run report: %w: %w", common.ErrServiceUnavailable, err)
	}
	return nil
}
