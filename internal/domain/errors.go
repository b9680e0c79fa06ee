package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNoCredential = errors.New("no valid credential")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoQuote      = errors.New("no quote available")
	ErrWSDisconnect = errors.New("websocket disconnected")
)
