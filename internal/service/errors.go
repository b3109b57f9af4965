package service

import "errors"

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("not allowed")
	ErrNotFound           = errors.New("not found")
)
