package homework

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tutor-crm/backend/internal/models"
)

// Store handles homework persistence and the per-user credit balance.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Balance reads the user's current credit balance without locking it.
// Used only for the cheap pre-gate check; the authoritative check happens
// under the row lock in WithCreditHold.
func (s *Store) Balance(ctx context.Context, userID int64) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx,
		`SELECT ai_credits_left FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (s *Store) StudentBelongsToUser(ctx context.Context, studentID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM students WHERE id = $1 AND user_id = $2)`,
		studentID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student ownership: %w", err)
	}
	return exists, nil
}

// WithCreditHold runs fn while holding an exclusive row lock on the user's
// balance, then persists the record fn produced and deducts cost — all in
// one transaction. If the balance cannot cover cost, fn never runs. If fn
// or persistence fails, the transaction rolls back and no deduction takes
// effect. The lock serializes concurrent generations for the same user, so
// two requests can never spend the same last credit.
func (s *Store) WithCreditHold(ctx context.Context, userID int64, cost int, fn func(context.Context) (*models.Homework, error)) (*models.Homework, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT ai_credits_left FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err != nil {
		return nil, 0, fmt.Errorf("lock balance: %w", err)
	}

	if balance < cost {
		return nil, balance, ErrInsufficientCredits
	}

	rec, err := fn(ctx)
	if err != nil {
		return nil, balance, err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO ai_homework
		 (user_id, student_id, subject, topic, difficulty, tasks_count,
		  provider, credits_spent, generated_tasks, validation, sent_via_telegram)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
		 RETURNING id, created_at`,
		rec.UserID, rec.StudentID, rec.Subject, rec.Topic, rec.Difficulty,
		rec.TasksCount, rec.Provider, cost, rec.GeneratedTasks, rec.Validation,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, balance, fmt.Errorf("insert homework: %w", err)
	}
	rec.CreditsSpent = cost

	newBalance := balance - cost
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_events (user_id, delta, reason, homework_id)
		 VALUES ($1, $2, 'homework_generation', $3)`,
		userID, -cost, rec.ID,
	); err != nil {
		return nil, balance, fmt.Errorf("insert credit event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET ai_credits_left = $2, updated_at = NOW() WHERE id = $1`,
		userID, newBalance,
	); err != nil {
		return nil, balance, fmt.Errorf("deduct credits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, balance, fmt.Errorf("commit: %w", err)
	}

	return rec, newBalance, nil
}

// ── History ─────────────────────────────────────────────

func (s *Store) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Homework, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, student_id, subject, topic, difficulty, tasks_count,
		        provider, credits_spent, generated_tasks, validation,
		        sent_via_telegram, created_at
		 FROM ai_homework
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list homework: %w", err)
	}
	defer rows.Close()

	var result []models.Homework
	for rows.Next() {
		var hw models.Homework
		if err := rows.Scan(
			&hw.ID, &hw.UserID, &hw.StudentID, &hw.Subject, &hw.Topic,
			&hw.Difficulty, &hw.TasksCount, &hw.Provider, &hw.CreditsSpent,
			&hw.GeneratedTasks, &hw.Validation, &hw.SentViaTelegram, &hw.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan homework: %w", err)
		}
		result = append(result, hw)
	}
	return result, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id, userID int64) (*models.Homework, error) {
	var hw models.Homework
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, student_id, subject, topic, difficulty, tasks_count,
		        provider, credits_spent, generated_tasks, validation,
		        sent_via_telegram, created_at
		 FROM ai_homework WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(
		&hw.ID, &hw.UserID, &hw.StudentID, &hw.Subject, &hw.Topic,
		&hw.Difficulty, &hw.TasksCount, &hw.Provider, &hw.CreditsSpent,
		&hw.GeneratedTasks, &hw.Validation, &hw.SentViaTelegram, &hw.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get homework: %w", err)
	}
	return &hw, nil
}

func (s *Store) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ai_homework WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkSent(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ai_homework SET sent_via_telegram = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Subscription(ctx context.Context, userID int64) (*models.SubscriptionInfo, error) {
	var info models.SubscriptionInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT subscription_tier, ai_credits_left FROM users WHERE id = $1`,
		userID,
	).Scan(&info.SubscriptionTier, &info.AICreditsLeft)
	if err != nil {
		return nil, fmt.Errorf("read subscription: %w", err)
	}
	return &info, nil
}
