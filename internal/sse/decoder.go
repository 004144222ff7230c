package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Decoder reads events from an event-stream body in arrival order.
type Decoder struct {
	br *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF once the body is exhausted.
func (d *Decoder) Next() (Event, error) {
	var dataLines []string
	for {
		raw, err := d.br.ReadString('\n')
		if raw != "" {
			line := strings.TrimRight(raw, "\r\n")
			switch {
			// Blank line ends event.
			case line == "":
				if len(dataLines) > 0 {
					return decode(dataLines)
				}
			// Comment.
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "data:"):
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(dataLines) > 0 {
					return decode(dataLines)
				}
				return Event{}, io.EOF
			}
			return Event{}, err
		}
	}
}

func decode(dataLines []string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &ev); err != nil {
		return Event{}, errors.Wrap(err, "failed to decode event")
	}
	return ev, nil
}
