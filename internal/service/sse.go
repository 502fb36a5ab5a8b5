package service

import (
	"bytes"
	"strings"
)

// Event is one JSON payload pulled out of the event stream.
type Event struct {
	Name string
	Data string
}

// Parser splits a byte stream into records. Bytes after the last record
// separator are held until the next Feed, so a record cut across network
// reads is never parsed half-way.
type Parser struct {
	buf []byte
}

func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	consumed := false
	for {
		idx, sepLen := recordBoundary(p.buf)
		if idx < 0 {
			break
		}
		events = append(events, parseRecord(p.buf[:idx])...)
		p.buf = p.buf[idx+sepLen:]
		consumed = true
	}
	if consumed {
		p.buf = append([]byte(nil), p.buf...)
	}
	return events
}

// Flush parses whatever is left after the stream ended.
func (p *Parser) Flush() []Event {
	rest := p.buf
	p.buf = nil
	return parseRecord(rest)
}

// Pending reports how many bytes are waiting for a record separator.
func (p *Parser) Pending() int { return len(p.buf) }

var (
	sepLF   = []byte("\n\n")
	sepCRLF = []byte("\r\n\r\n")
)

func recordBoundary(b []byte) (int, int) {
	lf := bytes.Index(b, sepLF)
	crlf := bytes.Index(b, sepCRLF)
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return lf, len(sepLF)
	default:
		return crlf, len(sepCRLF)
	}
}

// parseRecord yields one event per data line. Each data line of this
// backend is a complete JSON document, so lines are not joined. A bare
// JSON object line carrying a "type" key is accepted without the prefix.
func parseRecord(record []byte) []Event {
	if len(bytes.TrimSpace(record)) == 0 {
		return nil
	}

	var (
		name   string
		events []Event
	)
	for _, line := range strings.Split(string(record), "\n") {
		line = strings.TrimRight(line, "\r")
		var payload string
		switch {
		case line == "", strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		case strings.HasPrefix(line, "data:"):
			payload = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(strings.TrimSpace(line), "{") && strings.Contains(line, `"type"`):
			payload = strings.TrimSpace(line)
		default:
			continue
		}
		if payload == "" || payload == "{}" {
			continue
		}
		events = append(events, Event{Name: name, Data: payload})
	}
	return events
}
