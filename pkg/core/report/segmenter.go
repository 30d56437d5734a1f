package report

// DefaultParts is the number of chunks a report is split into. More parts
// mean smaller prompts and a lower chance of the model truncating its reply.
const DefaultParts = 15

// MaxParts bounds the user-configurable part count.
const MaxParts = 15

// ClampParts normalizes a requested part count to 1..MaxParts and never more
// than the text length, so every chunk is non-empty.
func ClampParts(parts, textLen int) int {
	if parts < 1 {
		parts = DefaultParts
	}
	if parts > MaxParts {
		parts = MaxParts
	}
	if parts > textLen {
		parts = textLen
	}
	if parts < 1 {
		parts = 1
	}
	return parts
}

// Split partitions text into parts contiguous chunks with no gaps or
// overlaps. The first parts-1 chunks have equal length (len/parts, integer
// division) and the final chunk absorbs the remainder. The caller is expected
// to have clamped parts with ClampParts.
func Split(text string, parts int) []string {
	parts = ClampParts(parts, len(text))
	size := len(text) / parts

	chunks := make([]string, 0, parts)
	for i := 0; i < parts-1; i++ {
		chunks = append(chunks, text[i*size:(i+1)*size])
	}
	chunks = append(chunks, text[(parts-1)*size:])
	return chunks
}
