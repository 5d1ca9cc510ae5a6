package repository

import (
	"errors"

	"account-service/internal/ledger"
)

var (
	ErrAccountNotFound = ledger.ErrAccountNotFound
	ErrUsernameTaken   = errors.New("username already exists")
	ErrEmailTaken      = errors.New("email already exists")
	ErrSessionNotFound = errors.New("session not found")
)
