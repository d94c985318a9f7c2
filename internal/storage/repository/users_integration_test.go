//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_AccountLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	const userID int64 = 42
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Пользователя еще нет
	_, found, err := storage.FindAccount(ctx, userID)
	require.NoError(t, err)
	assert.False(t, found)

	// Создание и повторное создание
	require.NoError(t, storage.CreateAccount(ctx, userID, today))
	require.NoError(t, storage.CreateAccount(ctx, userID, today))

	acc, found, err := storage.FindAccount(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, acc.DownloadsToday)
	assert.False(t, acc.IsPremiumLegacy)
	assert.Nil(t, acc.PlanExpiryDate)
	assert.True(t, acc.LastResetDate.Equal(today))
}

func TestStorage_IncrementAndReset(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	const userID int64 = 42
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	require.NoError(t, storage.CreateAccount(ctx, userID, today))

	count, err := storage.IncrementUsage(ctx, userID, today)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = storage.IncrementUsage(ctx, userID, today)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, storage.ResetDailyCount(ctx, userID, tomorrow))

	acc, found, err := storage.FindAccount(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, acc.DownloadsToday)
	assert.True(t, acc.LastResetDate.Equal(tomorrow))
}

func TestStorage_SetPlanExpiry(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	expiry := today.AddDate(0, 0, 30)

	// Запись создается, если пользователя еще нет
	const newUser int64 = 100
	require.NoError(t, storage.SetPlanExpiry(ctx, newUser, expiry, today))

	acc, found, err := storage.FindAccount(ctx, newUser)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, acc.PlanExpiryDate)
	assert.True(t, acc.PlanExpiryDate.Equal(expiry))

	// Существующая запись обновляется, счетчик не трогается
	const existing int64 = 200
	require.NoError(t, storage.CreateAccount(ctx, existing, today))
	_, err = storage.IncrementUsage(ctx, existing, today)
	require.NoError(t, err)

	require.NoError(t, storage.SetPlanExpiry(ctx, existing, expiry, today))

	acc, found, err = storage.FindAccount(ctx, existing)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, acc.DownloadsToday)
	require.NotNil(t, acc.PlanExpiryDate)
	assert.True(t, acc.PlanExpiryDate.Equal(expiry))
}

func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	require.NoError(t, storage.CheckDatabaseReady())

	_, err := storage.DB.Exec(`DROP TABLE users`)
	require.NoError(t, err)

	assert.Error(t, storage.CheckDatabaseReady())
}

func TestStorage_CanceledContext(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := storage.FindAccount(ctx, 42)
	require.Error(t, err)
}
