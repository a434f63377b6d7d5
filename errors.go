package arena

import "errors"

var (
	// ErrDuplicateBody is returned when registering an id that is already tracked.
	ErrDuplicateBody = errors.New("arena: duplicate body id")
	// ErrUnknownBody is returned when operating on an id that is not tracked.
	ErrUnknownBody = errors.New("arena: unknown body id")
	// ErrDegenerateNormal is returned when two shapes share a center and no
	// contact direction exists.
	ErrDegenerateNormal = errors.New("arena: degenerate contact normal")
)
