package domain

import "errors"

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrStateConflict = errors.New("transaction is not pending")
	ErrExpired       = errors.New("transaction has expired")
	ErrValidation    = errors.New("invalid transaction request")
)
