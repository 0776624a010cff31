package subtitles

import (
	"strings"
)

// BlockSeparator joins blocks and chunk outputs.
const BlockSeparator = "\n\n"

// Normalize converts line endings to LF and trims surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// SplitBlocks returns the blank-line separated blocks of text in order.
// Lines holding only whitespace count as blank, and runs of blank lines
// collapse into one separator. Content lines are kept byte for byte.
func SplitBlocks(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	var (
		blocks  []string
		current []string
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

// JoinBlocks concatenates blocks with BlockSeparator.
func JoinBlocks(blocks []string) string {
	return strings.Join(blocks, BlockSeparator)
}

// CountBlocks reports the number of blocks in text.
func CountBlocks(text string) int {
	return len(SplitBlocks(text))
}
