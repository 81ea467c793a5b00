package input

// History is the append-only sequence of submitted non-empty lines,
// plus the recall cursor. The cursor stays in [0, len(entries)]; a
// cursor equal to len(entries) means "not recalling" — the in-progress
// line buffer is showing instead of a stored entry.
type History struct {
	entries []string
	cursor  int
}

// Append records a submitted line and resets the cursor past the end.
func (h *History) Append(line string) {
	h.entries = append(h.entries, line)
	h.cursor = len(h.entries)
}

// Up moves the cursor one entry back and returns it. Reports false
// when the cursor is already at the oldest entry.
func (h *History) Up() (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Down moves the cursor one entry forward and returns it. Past the
// newest entry the cursor snaps to "not recalling" and the returned
// content is empty.
func (h *History) Down() string {
	if h.cursor+1 < len(h.entries) {
		h.cursor++
		return h.entries[h.cursor]
	}
	h.cursor = len(h.entries)
	return ""
}

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the current recall cursor.
func (h *History) Cursor() int { return h.cursor }

// Last returns the most recently appended entry, or "" when empty.
func (h *History) Last() string {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}
