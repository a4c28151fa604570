package peer

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Every error is fatal for the run it happens in. A caller may start a new run
// from scratch but never resume a failed one.
var (
	// ErrInvalidPartyID is returned when an id is out of range or duplicated.
	ErrInvalidPartyID = xerrors.New("invalid party id")

	// ErrInvalidAddress is returned when a network address or a pinned
	// identity is syntactically invalid.
	ErrInvalidAddress = xerrors.New("invalid address")

	// ErrConnectionFailed is returned when a peer can't be reached or
	// authenticated within the bootstrap timeout.
	ErrConnectionFailed = xerrors.New("connection failed")

	// ErrBinCountMismatch is returned when parties don't agree on the number
	// of bins.
	ErrBinCountMismatch = xerrors.New("bin count mismatch")

	// ErrProtocolAborted is returned when a peer fails during an interactive
	// step, or when a stage is attempted on a run that already failed.
	ErrProtocolAborted = xerrors.New("protocol aborted")

	// ErrAlreadyOpened is returned when a run is opened more than once.
	ErrAlreadyOpened = xerrors.New("result already opened")
)

// Stage names the pipeline step an error was observed in.
type Stage string

const (
	StageBootstrap  Stage = "bootstrap"
	StageDistribute Stage = "distribute"
	StageAggregate  Stage = "aggregate"
	StageConvert    Stage = "convert"
	StageSuppress   Stage = "suppress"
	StageOpen       Stage = "open"
)

// NoParty is used in a RunError that is not tied to a specific peer.
const NoParty = -1

// RunError is a fatal error annotated with the stage and the party involved.
// errors.Is matches both its kind and its cause.
type RunError struct {
	Kind  error
	Party int
	Stage Stage
	Err   error
}

// NewRunError returns a new run error.
func NewRunError(kind error, stage Stage, party int, err error) *RunError {
	return &RunError{
		Kind:  kind,
		Party: party,
		Stage: stage,
		Err:   err,
	}
}

// Error implements error.
func (e *RunError) Error() string {
	where := string(e.Stage)
	if e.Party != NoParty {
		where = fmt.Sprintf("%s, party %d", e.Stage, e.Party)
	}
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, where)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, where, e.Err)
}

// Is reports whether target is the kind of this error.
func (e *RunError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause.
func (e *RunError) Unwrap() error {
	return e.Err
}
