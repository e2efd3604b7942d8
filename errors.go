package xlform

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress indicates a coordinate string that is not letters followed by digits.
	ErrInvalidAddress = errors.New("invalid cell address")

	// ErrUnreadableWorkbook indicates a corrupt or unsupported spreadsheet upload.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")

	// ErrUnknownSheet indicates a sheet name absent from the workbook.
	ErrUnknownSheet = errors.New("unknown sheet")

	// ErrSaveFailed indicates the instance store rejected or never received a save.
	ErrSaveFailed = errors.New("save failed")

	// ErrExportFailed indicates the instance store could not produce an export.
	ErrExportFailed = errors.New("export failed")
)

// AddressError reports a malformed cell address.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid cell address %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("invalid cell address %q", e.Address)
}

func (e *AddressError) Unwrap() error { return e.Err }

// Is makes every AddressError match ErrInvalidAddress.
func (e *AddressError) Is(target error) bool { return target == ErrInvalidAddress }

// WorkbookError reports a failure to decode a workbook of the given format.
type WorkbookError struct {
	Format string // "xlsx", "ods" or "" when undetected
	Err    error
}

func (e *WorkbookError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("unreadable workbook: %v", e.Err)
	}
	return fmt.Sprintf("unreadable %s workbook: %v", e.Format, e.Err)
}

func (e *WorkbookError) Unwrap() error { return e.Err }

// Is makes every WorkbookError match ErrUnreadableWorkbook.
func (e *WorkbookError) Is(target error) bool { return target == ErrUnreadableWorkbook }
