package app

import "errors"

var (
	ErrEmailAndPasswordRequired = errors.New("email and password are required")
	ErrEmailAlreadyExists       = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrUserDisabled             = errors.New("account disabled")
	ErrRefreshTokenRequired     = errors.New("refresh token is required")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrStorageUnavailable       = errors.New("document storage is not configured")
	ErrInvalidStatus            = errors.New("invalid application status")
	ErrNoApplicationIDs         = errors.New("at least one application id is required")
)
