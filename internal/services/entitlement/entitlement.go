// Package entitlement реализует бизнес-логику квот: проверку разрешения
// на загрузку, учёт использования и начисление премиум-дней.
//
// Счётчик загрузок действителен в пределах календарного дня по UTC и
// обнуляется лениво при первом обращении в новый день. Премиум — это
// логическое ИЛИ старого флага и даты окончания плана не раньше сегодня.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magelan09/shopee-video-bot/internal/models"
)

// UnlimitedDownloads значение остатка, которое видит премиум-пользователь.
const UnlimitedDownloads = 9999

// Repository описывает операции хранилища над учётными записями.
type Repository interface {
	FindAccount(ctx context.Context, userID int64) (*models.UserAccount, bool, error)
	CreateAccount(ctx context.Context, userID int64, today time.Time) error
	ResetDailyCount(ctx context.Context, userID int64, today time.Time) error
	IncrementUsage(ctx context.Context, userID int64, today time.Time) (int, error)
	SetPlanExpiry(ctx context.Context, userID int64, expiry, today time.Time) error
}

// Service проверяет и изменяет квоты пользователей. Последовательность
// чтение-проверка-запись по одному пользователю выполняется под
// отдельным мьютексом этого пользователя, поэтому конкурентные вызовы
// не теряют инкременты.
type Service struct {
	repo       Repository
	log        *slog.Logger
	dailyLimit int
	now        func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New создаёт сервис квот с дневным лимитом dailyLimit.
func New(repo Repository, log *slog.Logger, dailyLimit int) *Service {
	return &Service{
		repo:       repo,
		log:        log,
		dailyLimit: dailyLimit,
		now:        time.Now,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// lockUser возвращает функцию разблокировки критической секции пользователя.
func (s *Service) lockUser(userID int64) func() {
	s.mu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// today возвращает текущую календарную дату по UTC.
func (s *Service) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckAllowance проверяет, разрешена ли пользователю загрузка сейчас.
// Побочные эффекты: создаёт запись при первом обращении и обнуляет
// счётчик, если сменился календарный день.
func (s *Service) CheckAllowance(ctx context.Context, userID int64) (*models.Allowance, error) {
	const op = "entitlement.CheckAllowance"

	unlock := s.lockUser(userID)
	defer unlock()

	acc, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.allowance(acc), nil
}

// IncrementUsage увеличивает дневной счётчик на единицу и возвращает
// состояние квоты после инкремента. Разрешение не проверяется:
// вызывающая сторона обязана проверить его заранее.
func (s *Service) IncrementUsage(ctx context.Context, userID int64) (*models.Allowance, error) {
	const op = "entitlement.IncrementUsage"

	unlock := s.lockUser(userID)
	defer unlock()

	acc, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	count, err := s.repo.IncrementUsage(ctx, userID, s.today())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	acc.DownloadsToday = count
	return s.allowance(acc), nil
}

// AddPremiumDays продлевает премиум-план на days дней и возвращает новую
// дату окончания. Если текущий план ещё действует, дни прибавляются к его
// дате окончания, иначе отсчёт идёт от сегодня.
func (s *Service) AddPremiumDays(ctx context.Context, userID int64, days int) (time.Time, error) {
	const op = "entitlement.AddPremiumDays"

	if days <= 0 {
		return time.Time{}, fmt.Errorf("%s: days must be positive, got %d", op, days)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	acc, err := s.loadAccount(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	today := s.today()
	start := today
	if acc.PlanExpiryDate != nil && !acc.PlanExpiryDate.Before(today) {
		start = *acc.PlanExpiryDate
	}
	expiry := start.AddDate(0, 0, days)

	if err := s.repo.SetPlanExpiry(ctx, userID, expiry, today); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("premium extended",
		slog.Int64("user_id", userID),
		slog.Int("days", days),
		slog.Time("expires_at", expiry))
	return expiry, nil
}

// loadAccount читает запись пользователя, создавая её при отсутствии
// и обнуляя счётчик при смене календарного дня.
func (s *Service) loadAccount(ctx context.Context, userID int64) (*models.UserAccount, error) {
	today := s.today()

	acc, found, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := s.repo.CreateAccount(ctx, userID, today); err != nil {
			return nil, err
		}
		return &models.UserAccount{UserID: userID, LastResetDate: today}, nil
	}
	if !acc.LastResetDate.Equal(today) {
		if err := s.repo.ResetDailyCount(ctx, userID, today); err != nil {
			return nil, err
		}
		acc.DownloadsToday = 0
		acc.LastResetDate = today
	}
	return acc, nil
}

// allowance вычисляет разрешение по текущему состоянию записи.
func (s *Service) allowance(acc *models.UserAccount) *models.Allowance {
	today := s.today()

	premium := acc.IsPremiumLegacy
	expired := false
	if acc.PlanExpiryDate != nil {
		if !acc.PlanExpiryDate.Before(today) {
			premium = true
		} else if !premium {
			expired = true
		}
	}

	left := s.dailyLimit - acc.DownloadsToday
	if left < 0 {
		left = 0
	}
	if premium {
		left = UnlimitedDownloads
	}

	return &models.Allowance{
		Allowed:       premium || acc.DownloadsToday < s.dailyLimit,
		DownloadsLeft: left,
		IsPremium:     premium,
		PlanExpired:   expired,
	}
}
