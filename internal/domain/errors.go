package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
	ErrSigningFailed = errors.New("signing failed")
	ErrNetwork       = errors.New("network failure")
	ErrParse         = errors.New("malformed response")
	ErrWSDisconnect  = errors.New("websocket disconnected")
)
