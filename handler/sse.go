package handler

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/unfazed-dev/a2ui-adapter/streamparser"
)

const sseDoneSentinel = "[DONE]"

// sseLine is one decoded "data: {json}" line, or a decode failure carrying
// the offending raw line.
type sseLine struct {
	event streamparser.ServerEvent
	ok bool
	rawLine string
	err error
}

// scanSSE reads lines "data: <json>" from r, skipping blanks and the
// [DONE] sentinel. It returns one sseLine per data line; JSON decode
// failures are reported (ok=false) rather than returned as a Go error,
// since a malformed line should become one Error StreamEvent and the scan
// should continue rather than abort.
//
// done lets a caller that stops reading the returned channel early (a
// terminal event, context cancellation, or the inactivity watchdog) signal
// the producer goroutine to give up rather than block forever on a send
// nobody will receive; the caller must close done exactly once, on every
// return path, once it is finished reading.
func scanSSE(r io.Reader, done <-chan struct{}, onLine func()) <-chan sseLine {
	out := make(chan sseLine, 1)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			payload, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			payload = strings.TrimSpace(payload)
			if payload == sseDoneSentinel {
				continue
			}
			var ev streamparser.ServerEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				select {
				case out <- sseLine{ok: false, rawLine: line, err: err}:
				case <-done:
					return
				}
				continue
			}
			select {
			case out <- sseLine{event: ev, ok: true}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- sseLine{ok: false, rawLine: "", err: err}:
			case <-done:
			}
		}
	}()
	return out
}
