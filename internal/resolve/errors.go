package resolve

import (
	"fmt"
	"strings"
)

// MissingPartError reports parts still absent after the fetch-and-retry
// cycle. The mesh for Root cannot be produced.
type MissingPartError struct {
	Root  string
	Names []string // sorted
}

func (e *MissingPartError) Error() string {
	return fmt.Sprintf("resolve: %s: %d missing part(s): %s", e.Root, len(e.Names), strings.Join(e.Names, ", "))
}

// CycleError reports a part that references itself, directly or through
// its sub-parts. Path starts and ends with the repeated name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "resolve: reference cycle: " + strings.Join(e.Path, " -> ")
}
