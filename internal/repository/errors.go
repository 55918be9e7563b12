package repository

import "errors"

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict условное обновление не затронуло ни одной строки:
	// текущий статус записи не совпал с ожидаемым
	ErrStatusConflict = errors.New("subscription status changed concurrently")
)
