package bubblemind

import "errors"

// Gesture and edge precondition failures. None of these leave lasting state.
var (
	ErrGestureRejected  = errors.New("gesture rejected")
	ErrDuplicateEdge    = errors.New("edge already exists between these bubbles")
	ErrUnconfirmedNode  = errors.New("bubble is not confirmed by the backend yet")
	ErrInvalidDirection = errors.New("a solution cannot lead to a thought")
)

// Backend failures as classified by the sync controller.
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrTimeout            = errors.New("backend request timed out")
	ErrServerRejected     = errors.New("backend rejected the request")
	ErrBusy               = errors.New("a request for this item is already in flight")
	ErrEmptyText          = errors.New("no text recognized")
)

// classifyBackendErr maps an arbitrary backend error into the taxonomy.
// Errors already wrapping a known sentinel keep it.
func classifyBackendErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrServerRejected),
		errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, ErrEmptyText):
		return err
	}
	return errors.Join(ErrBackendUnavailable, err)
}
