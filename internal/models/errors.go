package models

import "errors"

// Store-level sentinels shared by the repositories and the services that call them.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
