package cli

import (
	"errors"
	"fmt"

	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

// ErrUsage marks errors caused by invalid flags, config or arguments.
var ErrUsage = errors.New("cli usage error")

// ErrDiagnostics marks runs where one or more signatures failed to parse. The
// diagnostics themselves have already been written to stderr.
var ErrDiagnostics = errors.New("signatures failed to parse")

// ErrManifest marks manifests whose signatures parse but conflict with each
// other, such as duplicate routes or operation names.
var ErrManifest = errors.New("manifest declares conflicting endpoints")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

type diagnosticsError struct {
	count int
}

func (e diagnosticsError) Error() string {
	if e.count == 1 {
		return "1 signature failed to parse"
	}
	return fmt.Sprintf("%d signatures failed to parse", e.count)
}

func (e diagnosticsError) Is(target error) bool {
	return target == ErrDiagnostics
}

// manifestError keeps model validation failures out of the usage class so
// they exit like syntax diagnostics. Other errors go through specUsageError.
func manifestError(err error) error {
	var se *genspec.SpecError
	if errors.As(err, &se) && se.Code == genspec.ValidationError {
		return fmt.Errorf("%w: %w", ErrManifest, se)
	}
	return specUsageError(err)
}

// specUsageError maps structured manifest errors into friendly messages.
func specUsageError(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("manifest: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}
