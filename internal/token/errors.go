package token

import "errors"

var (
	// ErrTokenGeneration indicates token signing failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrInvalidToken indicates the token failed the signature or
	// structure check
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("token expired")

	// ErrInsufficientScope indicates the token lacks a required scope
	ErrInsufficientScope = errors.New("not enough permissions")
)
