package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type recomputeQueueRepositoryImpl struct {
	db *database.DB
}

func NewRecomputeQueueRepository(db *database.DB) attendance.RecomputeQueueRepository {
	return &recomputeQueueRepositoryImpl{db: db}
}

// Enqueue implements attendance.RecomputeQueueRepository.
func (r *recomputeQueueRepositoryImpl) Enqueue(ctx context.Context, keys []attendance.RecomputeKey) error {
	if len(keys) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `INSERT INTO attendance_recompute_queue (company_id, employee_id, year, month) VALUES ($1, $2, $3, $4)`

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(query, k.CompanyID, k.EmployeeID, k.Year, k.Month)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range keys {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to enqueue recompute: %w", err)
		}
	}
	return results.Close()
}

// ClaimStale implements attendance.RecomputeQueueRepository. Claimed rows are
// skipped by concurrent sweepers until they go stale again.
func (r *recomputeQueueRepositoryImpl) ClaimStale(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]attendance.RecomputeKey, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH claimed AS (
			SELECT id
			FROM attendance_recompute_queue
			WHERE enqueued_at < $1
			  AND attempts < $2
			  AND (last_attempt_at IS NULL OR last_attempt_at < $1)
			ORDER BY enqueued_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE attendance_recompute_queue q
		SET attempts = q.attempts + 1,
			last_attempt_at = NOW()
		FROM claimed
		WHERE q.id = claimed.id
		RETURNING q.company_id, q.employee_id, q.year, q.month
	`

	rows, err := q.Query(ctx, query, staleBefore, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim stale recompute rows: %w", err)
	}
	defer rows.Close()

	seen := make(map[attendance.RecomputeKey]struct{})
	var keys []attendance.RecomputeKey
	for rows.Next() {
		var k attendance.RecomputeKey
		if err := rows.Scan(&k.CompanyID, &k.EmployeeID, &k.Year, &k.Month); err != nil {
			return nil, fmt.Errorf("failed to scan recompute row: %w", err)
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recompute rows: %w", err)
	}
	return keys, nil
}

// Complete implements attendance.RecomputeQueueRepository. Rows enqueued after
// the recompute started stay for the next run.
func (r *recomputeQueueRepositoryImpl) Complete(ctx context.Context, key attendance.RecomputeKey, enqueuedBefore time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		DELETE FROM attendance_recompute_queue
		WHERE company_id = $1 AND employee_id = $2 AND year = $3 AND month = $4
		  AND enqueued_at <= $5
	`

	if _, err := q.Exec(ctx, query, key.CompanyID, key.EmployeeID, key.Year, key.Month, enqueuedBefore); err != nil {
		return fmt.Errorf("failed to complete recompute rows: %w", err)
	}
	return nil
}
