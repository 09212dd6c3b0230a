package wld

import (
	"errors"
	"fmt"
)

// World file errors.
var (
	ErrOpen               = errors.New("cannot open world file")
	ErrOutOfBounds        = errors.New("read past end of world data")
	ErrUnsupportedVersion = errors.New("unsupported world version")
	ErrBadMagic           = errors.New("not a terraria world file")
	ErrSchema             = errors.New("invalid header schema")
	ErrMissingKey         = errors.New("header field not present")
	ErrCorrupt            = errors.New("corrupt world data")
)

// LoadError reports the stage a world load failed in.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
