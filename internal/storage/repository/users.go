package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magelan09/shopee-video-bot/internal/models"
)

// FindAccount возвращает учётную запись пользователя.
// Второе значение false означает, что записи ещё нет.
func (s *Storage) FindAccount(ctx context.Context, userID int64) (*models.UserAccount, bool, error) {
	const op = "storage.FindAccount"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT downloads_today, last_reset_date, is_premium, plan_expiry_date
			  FROM users WHERE user_id = $1`
	row := s.DB.QueryRowContext(ctx, query, userID)

	acc := &models.UserAccount{UserID: userID}
	var lastReset, planExpiry sql.NullTime
	if err := row.Scan(&acc.DownloadsToday, &lastReset, &acc.IsPremiumLegacy, &planExpiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if lastReset.Valid {
		acc.LastResetDate = lastReset.Time
	}
	if planExpiry.Valid {
		expiry := planExpiry.Time
		acc.PlanExpiryDate = &expiry
	}
	return acc, true, nil
}

// CreateAccount вставляет новую учётную запись с нулевым счётчиком.
// Повторная вставка того же пользователя не считается ошибкой.
func (s *Storage) CreateAccount(ctx context.Context, userID int64, today time.Time) error {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, downloads_today, last_reset_date, is_premium)
			  VALUES ($1, 0, $2, FALSE)
			  ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, userID, today); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetDailyCount обнуляет дневной счётчик и ставит новую дату отсчёта.
func (s *Storage) ResetDailyCount(ctx context.Context, userID int64, today time.Time) error {
	const op = "storage.ResetDailyCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET downloads_today = 0, last_reset_date = $2 WHERE user_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, userID, today); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IncrementUsage увеличивает дневной счётчик на единицу, ставит дату
// и возвращает новое значение счётчика.
func (s *Storage) IncrementUsage(ctx context.Context, userID int64, today time.Time) (int, error) {
	const op = "storage.IncrementUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET downloads_today = downloads_today + 1, last_reset_date = $2
			  WHERE user_id = $1
			  RETURNING downloads_today`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID, today).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// SetPlanExpiry ставит новую дату окончания премиум-плана.
// Если записи пользователя ещё нет, она создаётся.
func (s *Storage) SetPlanExpiry(ctx context.Context, userID int64, expiry, today time.Time) error {
	const op = "storage.SetPlanExpiry"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, downloads_today, last_reset_date, is_premium, plan_expiry_date)
			  VALUES ($1, 0, $2, FALSE, $3)
			  ON CONFLICT (user_id) DO UPDATE SET plan_expiry_date = EXCLUDED.plan_expiry_date`
	if _, err := s.DB.ExecContext(ctx, query, userID, today, expiry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
