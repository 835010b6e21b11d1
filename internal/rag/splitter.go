package rag

import "strings"

// SplitText cuts text into chunks of at most size bytes with the given overlap
// between consecutive chunks. Cuts prefer the last newline or space inside the
// window so words are not split mid-token.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}
		cut := end
		if i := strings.LastIndexByte(text[start:end], '\n'); i > size/2 {
			cut = start + i
		} else if i := strings.LastIndexByte(text[start:end], ' '); i > size/2 {
			cut = start + i
		}
		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
