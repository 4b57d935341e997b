package auth

import "errors"

// ErrInvalidToken indicates a bearer token that fails validation.
var ErrInvalidToken = errors.New("auth: invalid token")
