package export

import (
	"errors"
	"fmt"
)

var (
	// ErrExportInProgress rejects a second concurrent export.
	ErrExportInProgress = errors.New("export: another export is already running")
	// ErrInvalidOptions wraps option validation failures.
	ErrInvalidOptions = errors.New("export: invalid options")
)

// Export stages reported in StageError.
const (
	StageCapture = "capture"
	StageRender  = "render"
	StageEncode  = "encode"
)

// StageError reports which stage of an export failed. No partial artifact
// accompanies it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("export %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
