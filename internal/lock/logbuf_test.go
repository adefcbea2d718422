package lock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/blelock/internal/lock"
)

// TestReassembler verifies fragment accumulation and sentinel flushing
func TestReassembler(t *testing.T) {
	t.Run("sentinel flushes concatenated fragments", func(t *testing.T) {
		var emitted []string
		r := lock.NewReassembler(func(text string) { emitted = append(emitted, text) })

		r.Append("2026-08-01 unlocked\n")
		r.Append("2026-08-02 failed attempt\n")
		assert.Empty(t, emitted, "nothing emits before the sentinel")

		r.Append(lock.LogSentinel)
		assert.Equal(t, []string{"2026-08-01 unlocked\n2026-08-02 failed attempt\n"}, emitted)
	})

	t.Run("buffer resets after flush", func(t *testing.T) {
		var emitted []string
		r := lock.NewReassembler(func(text string) { emitted = append(emitted, text) })

		r.Append("first")
		r.Append(lock.LogSentinel)
		r.Append("second")
		r.Append(lock.LogSentinel)

		assert.Equal(t, []string{"first", "second"}, emitted)
	})

	t.Run("sentinel with empty buffer emits empty text", func(t *testing.T) {
		var emitted []string
		r := lock.NewReassembler(func(text string) { emitted = append(emitted, text) })

		r.Append(lock.LogSentinel)

		assert.Equal(t, []string{""}, emitted, "an empty transmission is still a transmission")
	})

	t.Run("embedded sentinel text does not flush", func(t *testing.T) {
		var emitted []string
		r := lock.NewReassembler(func(text string) { emitted = append(emitted, text) })

		r.Append("End of log. But not really")
		assert.Empty(t, emitted, "matching is whole-fragment only")
		assert.Equal(t, "End of log. But not really", r.Pending())
	})

	t.Run("pending exposes the unterminated buffer", func(t *testing.T) {
		r := lock.NewReassembler(nil)
		r.Append("partial")
		assert.Equal(t, "partial", r.Pending())
	})
}
