// ABOUTME: Store methods for the job queue: enqueue, SKIP LOCKED claiming,
// ABOUTME: completion, retry with backoff, and stale-job recovery.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Job is a claimed job ready for execution by the worker pool.
type Job struct {
	ID       uuid.UUID
	Queue    string
	Payload  json.RawMessage
	Attempts int32
}

// EnqueueJob inserts a new job into the named queue and returns its ID.
// lockKey prevents concurrent execution of jobs with the same key.
// runAfter defaults to now() when nil.
func (s *Store) EnqueueJob(
	ctx context.Context,
	queue string,
	priority int32,
	payload json.RawMessage,
	lockKey *string,
	maxAttempts int32,
	runAfter *time.Time,
) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO job_queue (queue, priority, payload, lock_key, max_attempts, run_after)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING id`,
		queue, priority, payload, lockKey, maxAttempts, runAfter).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// ClaimJob atomically claims one pending job from the named queue for the
// given workerID using FOR UPDATE SKIP LOCKED. Jobs whose lock_key matches a
// currently running job are skipped so keyed jobs never run concurrently.
// Returns (nil, nil) when no job is currently available.
func (s *Store) ClaimJob(ctx context.Context, queue, workerID string) (*Job, error) {
	var j Job
	err := s.pool.QueryRow(ctx, `
		UPDATE job_queue
		SET status = 'running', locked_by = $2, locked_at = now(),
			attempts = attempts + 1
		WHERE id = (
			SELECT id FROM job_queue jq
			WHERE jq.queue = $1
			  AND jq.status = 'pending'
			  AND jq.run_after <= now()
			  AND (jq.lock_key IS NULL OR NOT EXISTS (
				SELECT 1 FROM job_queue running
				WHERE running.lock_key = jq.lock_key
				  AND running.status = 'running'))
			ORDER BY jq.priority DESC, jq.run_after
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, attempts`,
		queue, workerID).Scan(&j.ID, &j.Queue, &j.Payload, &j.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return &j, nil
}

// CompleteJob marks a job as succeeded.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE job_queue
		SET status = 'succeeded', completed_at = now(), locked_by = NULL, locked_at = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// FailJob marks a job as failed, applying exponential backoff for retry or
// moving it to 'dead' status once max_attempts is exhausted.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE job_queue
		SET status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'pending' END,
			run_after = now() + (interval '30 seconds' * power(2, attempts)),
			last_error = NULLIF($2, ''),
			locked_by = NULL, locked_at = NULL,
			completed_at = CASE WHEN attempts >= max_attempts THEN now() ELSE NULL END
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// RecoverStaleJobs resets jobs stuck in 'running' state longer than staleAfter
// back to 'pending'. Returns the number of jobs recovered.
func (s *Store) RecoverStaleJobs(ctx context.Context, staleAfter time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE job_queue
		SET status = 'pending', locked_by = NULL, locked_at = NULL
		WHERE status = 'running'
		  AND locked_at < now() - ($1 * interval '1 second')`,
		int64(staleAfter.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
