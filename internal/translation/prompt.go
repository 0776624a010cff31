package translation

import (
	"fmt"
	"strings"

	"reelsub/internal/language"
)

// BuildPrompt renders the prompt for one chunk. part is 1-based.
func BuildPrompt(preset Preset, pair language.Pair, part, total int, chunkText string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(preset.Instructions))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Task: Translate from %s to %s.\n", pair.SourceName(), pair.TargetName())
	fmt.Fprintf(&b, "Part: %d of %d.\n\n", part, total)
	b.WriteString("Text to translate:\n")
	b.WriteString(chunkText)
	b.WriteString("\n\nReturn ONLY the translated SRT content.")
	return b.String()
}
