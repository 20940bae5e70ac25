// Package linebuf splits a byte stream into lines the way the streaming
// runner needs: buffer partial data across Feed calls, split on '\n',
// strip a trailing '\r', and only trim whitespace at final flush.
package linebuf

import "strings"

// Buffer accumulates bytes across calls to Feed and yields complete lines.
// The zero value is ready to use.
type Buffer struct {
	pending string
}

// Feed decodes chunk as UTF-8 (lossily — invalid byte sequences become the
// Unicode replacement character, independently per call, so a multi-byte
// sequence split across two Feed calls is not reassembled) and returns any
// newline-terminated lines now complete. A trailing '\r' is stripped from
// each line; nothing else is trimmed.
func (b *Buffer) Feed(chunk []byte) []string {
	b.pending += strings.ToValidUTF8(string(chunk), "�")

	var lines []string
	for {
		idx := strings.IndexByte(b.pending, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimSuffix(b.pending[:idx], "\r"))
		b.pending = b.pending[idx+1:]
	}
	return lines
}

// Flush returns any remaining partial line, trimmed of leading and trailing
// whitespace on both ends, and clears the buffer. It reports false if the
// trimmed remainder is empty (nothing to emit).
func (b *Buffer) Flush() (string, bool) {
	line := strings.TrimSpace(b.pending)
	b.pending = ""
	if line == "" {
		return "", false
	}
	return line, true
}
