package navmesh

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrNotFound        = errors.New("not found")
	ErrEngineRejected  = errors.New("engine rejected")
	ErrBuildFailed     = errors.New("build failed")

	ErrAlreadyBuilt = fmt.Errorf("%w: already built", ErrInvalidState)
	ErrAlreadyBound = fmt.Errorf("%w: already bound", ErrInvalidState)
	ErrNotBuilt     = fmt.Errorf("%w: not built", ErrInvalidState)
)
