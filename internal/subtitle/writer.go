package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultWriter writes SRT files to disk.
type DefaultWriter struct{}

func NewWriter() Writer {
	return &DefaultWriter{}
}

func (w *DefaultWriter) Write(path string, file *File) error {
	if file == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := WriteSRT(out, file); err != nil {
		return err
	}
	return out.Sync()
}

// WriteSRT serializes the cues in order.
func WriteSRT(out io.Writer, file *File) error {
	writer := bufio.NewWriter(out)
	for _, cue := range file.Cues {
		if _, err := fmt.Fprintf(writer, "%d\n%s --> %s\n%s\n\n",
			cue.Index,
			formatDuration(cue.Start),
			formatDuration(cue.End),
			cue.Text,
		); err != nil {
			return fmt.Errorf("failed to write cue %d: %w", cue.Index, err)
		}
	}
	return writer.Flush()
}

// MarshalSRT renders the file as SRT bytes.
func MarshalSRT(file *File) []byte {
	var buf bytes.Buffer
	_ = WriteSRT(&buf, file)
	return buf.Bytes()
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
