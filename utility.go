package laminar

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Minimum wait time used for shutdown polling throughout the package
const minWaitTime = 10 * time.Millisecond

// fmtErrorf wrapper, ensures the package prefix on every error
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "laminar: ") {
		format = "laminar: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}

// internalLogf writes engine diagnostics to stderr. Internal failures
// never travel through the delivery pipeline, that would recurse.
func internalLogf(enabled bool, format string, args ...any) {
	if !enabled {
		return
	}
	if !strings.HasPrefix(format, "laminar: ") {
		format = "laminar: " + format
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
