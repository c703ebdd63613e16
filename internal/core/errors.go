package core

import "errors"

// ErrEmptyFrame is returned when a captured buffer holds no pixels
var ErrEmptyFrame = errors.New("empty frame")
