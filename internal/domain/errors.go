package domain

import "errors"

var (
	ErrGameInProgress          = errors.New("a game is already in progress")
	ErrNoGameRunning           = errors.New("no game is running")
	ErrUnauthorized            = errors.New("not authorized")
	ErrQuestionSupplyExhausted = errors.New("question supply exhausted")
	ErrRateLimited             = errors.New("question source rate limited")
	ErrInvalidResponse         = errors.New("question source returned invalid response")
	ErrSourceUnavailable       = errors.New("question source unavailable")
	ErrPlayerNotFound          = errors.New("player not found")
)
