package task

import (
	"strings"

	"github.com/google/uuid"
)

// newTaskID returns a compact unique id. Hyphens are stripped so the id
// stays friendly in file names and URLs.
func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
