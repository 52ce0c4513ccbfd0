package services

import "strings"

// frameParser incrementally recovers data payloads from a raw upstream SSE
// byte stream. Events are separated by blank lines (CRLF tolerated); an
// event's payload is the join of its "data:" line values. Comment frames
// (leading colon) are skipped.
type frameParser struct {
	residual []byte
}

// feed appends chunk to the residual buffer and returns the payload of every
// complete event now buffered. Bytes of a partial trailing event stay in the
// buffer for the next call.
func (p *frameParser) feed(chunk []byte) []string {
	p.residual = append(p.residual, chunk...)

	var payloads []string
	for {
		end, skip := eventBoundary(p.residual)
		if end < 0 {
			return payloads
		}
		raw := string(p.residual[:end])
		p.residual = p.residual[end+skip:]

		if payload, ok := parseEvent(raw); ok {
			payloads = append(payloads, payload)
		}
	}
}

// eventBoundary finds the first double newline, matching any of \n\n, \r\n\n,
// \n\r\n and \r\n\r\n. Returns the event end offset and the separator width,
// or (-1, 0) when the buffer holds no complete event.
func eventBoundary(b []byte) (int, int) {
	for i := 0; i < len(b); i++ {
		if b[i] != '\n' && b[i] != '\r' {
			continue
		}
		rest := b[i:]
		switch {
		case len(rest) >= 4 && rest[0] == '\r' && rest[1] == '\n' && rest[2] == '\r' && rest[3] == '\n':
			return i, 4
		case len(rest) >= 3 && rest[0] == '\r' && rest[1] == '\n' && rest[2] == '\n':
			return i, 3
		case len(rest) >= 3 && rest[0] == '\n' && rest[1] == '\r' && rest[2] == '\n':
			return i, 3
		case len(rest) >= 2 && rest[0] == '\n' && rest[1] == '\n':
			return i, 2
		}
	}
	return -1, 0
}

func parseEvent(raw string) (string, bool) {
	if raw == "" || strings.HasPrefix(raw, ":") {
		return "", false
	}

	var dataLines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}

	payload := strings.Join(dataLines, "\n")
	if payload == "" {
		return "", false
	}
	return payload, true
}
