package shared

import (
	"fmt"
	"io"
	"sync"
)

// Reporter prints user-facing progress lines that are not part of the structured log.
type Reporter interface {
	Printf(format string, args ...any)
}

// WriterReporter serializes formatted output to a writer.
type WriterReporter struct {
	mutex  sync.Mutex
	writer io.Writer
}

// NewWriterReporter constructs a WriterReporter; a nil writer discards output.
func NewWriterReporter(writer io.Writer) *WriterReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &WriterReporter{writer: writer}
}

// Printf writes one formatted message.
func (reporter *WriterReporter) Printf(format string, args ...any) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	_, _ = fmt.Fprintf(reporter.writer, format, args...)
}
