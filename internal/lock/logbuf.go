package lock

import "strings"

// LogSentinel is the exact fragment text that terminates one log
// transmission. Matching is whole-fragment; a sentinel embedded in a
// longer fragment does not flush.
const LogSentinel = "End of log."

// Reassembler accumulates log fragments until the sentinel fragment
// arrives, then emits the concatenation and resets. The sentinel itself
// is not part of the emitted text.
type Reassembler struct {
	buf  strings.Builder
	emit func(text string)
}

func NewReassembler(emit func(text string)) *Reassembler {
	return &Reassembler{emit: emit}
}

// Append adds one fragment. On the sentinel the buffered text is
// emitted, even when empty, and the buffer resets for the next
// transmission.
func (r *Reassembler) Append(fragment string) {
	if fragment == LogSentinel {
		text := r.buf.String()
		r.buf.Reset()
		if r.emit != nil {
			r.emit(text)
		}
		return
	}
	r.buf.WriteString(fragment)
}

// Pending returns the accumulated text of an unterminated transmission.
func (r *Reassembler) Pending() string {
	return r.buf.String()
}
