package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Password reset errors
	ErrResetInvalidOrExpired = errors.New("reset secret is invalid or expired")
	ErrEmailDispatchFailed   = errors.New("email could not be sent")

	// Wallet link errors
	ErrSignatureInvalid   = errors.New("signature verification failed")
	ErrSignatureMismatch  = errors.New("recovered address does not match claimed address")
	ErrWalletAddressTaken = errors.New("wallet address is already bound to an account")
)
