// Package models содержит доменные структуры бота: учётную запись
// пользователя с дневным счётчиком загрузок, вычисленное разрешение
// на загрузку и платёжные данные.
package models

import "time"

// UserAccount представляет запись пользователя в хранилище.
// Счётчик DownloadsToday действителен для даты LastResetDate и
// обнуляется лениво при первом обращении в новый день.
type UserAccount struct {
	UserID          int64      // Идентификатор пользователя Telegram
	DownloadsToday  int        // Количество загрузок за текущий день
	LastResetDate   time.Time  // Дата, для которой действителен счётчик
	IsPremiumLegacy bool       // Старый флаг премиума, оставлен для совместимости
	PlanExpiryDate  *time.Time // Дата окончания оплаченного плана, nil — плана нет
}

// Allowance описывает результат проверки разрешения на загрузку
// в конкретный момент времени.
type Allowance struct {
	Allowed       bool // Разрешена ли загрузка сейчас
	DownloadsLeft int  // Сколько загрузок осталось сегодня
	IsPremium     bool // Активен ли премиум
	PlanExpired   bool // Премиум был, но дата окончания уже в прошлом
}
