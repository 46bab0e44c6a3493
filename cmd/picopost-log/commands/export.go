package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mytechnotalent/picopost/pkg/log"
)

// RunExport exports the capture file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "attempt_id", "category", "remote_addr", "message", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		record := []string{
			event.Timestamp.UTC().Format(time.RFC3339Nano),
			event.AttemptID,
			event.Category.String(),
			event.RemoteAddr,
			event.Message,
			eventDetail(event),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// eventDetail summarizes the type-specific payload in one cell.
func eventDetail(event log.Event) string {
	switch {
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.Reason != "" {
			return fmt.Sprintf("%s->%s (%s)", sc.OldState, sc.NewState, sc.Reason)
		}
		return fmt.Sprintf("%s->%s", sc.OldState, sc.NewState)
	case event.Chunk != nil:
		if event.Chunk.Truncated {
			return fmt.Sprintf("%d bytes truncated", event.Chunk.Size)
		}
		return fmt.Sprintf("%d bytes", event.Chunk.Size)
	case event.Error != nil:
		return fmt.Sprintf("%s: %s", event.Error.Kind, event.Error.Message)
	default:
		return ""
	}
}
