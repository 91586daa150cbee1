package shared_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subsync/internal/repos/shared"
)

func TestWriterReporterFormatsMessages(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	reporter := shared.NewWriterReporter(&buffer)
	reporter.Printf("%s tracks %s\n", "lib", "feature")

	require.Equal(t, "lib tracks feature\n", buffer.String())
}

func TestWriterReporterDiscardsWithoutWriter(t *testing.T) {
	t.Parallel()

	var reporter shared.Reporter = shared.NewWriterReporter(nil)
	require.NotPanics(t, func() {
		reporter.Printf("Report written to %s\n", "syncReport.md")
	})
}

func TestSystemClockReturnsCurrentTime(t *testing.T) {
	t.Parallel()

	clock := shared.SystemClock{}
	require.False(t, clock.Now().IsZero())
}
