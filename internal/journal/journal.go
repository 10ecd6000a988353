// Package journal appends completed exchanges to a durable plain-text log.
package journal

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Separator closes every exchange block.
var Separator = strings.Repeat("-", 40)

// Journal is an append-only text log. Each record is exactly three lines:
// the user text, the assistant text, and a separator. Embedded newlines are
// written as-is; line-based consumers must tolerate them.
type Journal struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Journal {
	return &Journal{path: path}
}

// Append writes one exchange record. Records are never edited or removed.
func (j *Journal) Append(userText, assistantText string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "User: %s\nAI: %s\n%s\n", userText, assistantText, Separator); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}
