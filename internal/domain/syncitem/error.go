package syncitem

import "errors"

var (
	// ErrItemNotFound — элемент с такой идентичностью не существует.
	ErrItemNotFound = errors.New("sync item not found")
	// ErrNoOpenConflict — у элемента нет открытого конфликта.
	ErrNoOpenConflict = errors.New("sync item has no open conflict")
	// ErrVersionConflict — версия в хранилище изменилась между чтением и записью.
	ErrVersionConflict = errors.New("sync item version conflict")
)
