package llm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxSSELineSize = 1024 * 1024

// sseReader yields the data payloads of a server-sent event stream.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseReader{scanner: scanner}
}

// Next returns the next event's data. Multi-line data fields are joined
// with newlines. io.EOF marks the end of the stream or the [DONE] sentinel.
func (r *sseReader) Next() (string, error) {
	var data []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			payload = strings.TrimSpace(payload)
			if payload == "[DONE]" {
				return "", io.EOF
			}
			data = append(data, payload)
		}
		// event:, id: and retry: fields are not used.
	}

	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("read event stream: %w", err)
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}
