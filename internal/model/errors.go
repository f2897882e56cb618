package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPendingHandle matches any *InvalidStateError.
	ErrInvalidPendingHandle = errors.New("invalid pending handle")
	// ErrBusy matches any *BusyError.
	ErrBusy = errors.New("session busy")
	// ErrScanUnavailable matches any *ScanError.
	ErrScanUnavailable = errors.New("scan unavailable")
)

// InvalidStateError is returned when a pending decision is resolved with an
// unknown or already-resolved handle.
type InvalidStateError struct {
	Handle string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid pending handle %q: %s", e.Handle, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidPendingHandle
}

// BusyError is returned when a proposal arrives while the session already
// holds a pending decision. Callers may retry after resolution.
type BusyError struct {
	Session       string
	PendingHandle string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("session %q busy: decision %s is awaiting review", e.Session, e.PendingHandle)
}

func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// Retryable is always true: the conflict clears once the pending decision resolves.
func (e *BusyError) Retryable() bool { return true }

// ScanError records why a page scan could not produce a signal.
// It is recovered inside the scanner guard and never reaches mediator callers.
type ScanError struct {
	PageContext string
	Err         error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %q: %v", e.PageContext, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

func (e *ScanError) Is(target error) bool {
	return target == ErrScanUnavailable
}
