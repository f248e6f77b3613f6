package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
)

// openLog returns the session logger. Without a log file the output is
// discarded.
func openLog(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	prefix := fmt.Sprintf("session=%s ", uuid.New())
	logger := log.New(f, prefix, log.LstdFlags|log.Lmsgprefix)
	return logger, func() { f.Close() }, nil
}
