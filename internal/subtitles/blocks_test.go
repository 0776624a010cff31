package subtitles

import (
	"fmt"
	"strings"
	"testing"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello there.\n\n2\n00:00:03,000 --> 00:00:04,500\nGeneral Kenobi!\nYou are a bold one.\n\n3\n00:00:05,000 --> 00:00:06,000\nKill him."

func TestSplitBlocks(t *testing.T) {
	blocks := SplitBlocks(sampleSRT)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if !strings.HasPrefix(blocks[1], "2\n") || !strings.HasSuffix(blocks[1], "bold one.") {
		t.Fatalf("unexpected second block %q", blocks[1])
	}
}

func TestSplitBlocksNormalizesSeparators(t *testing.T) {
	input := "\r\n1\r\nA\r\n\r\n\r\n  \r\n2\r\nB  \r\n\r\n"
	blocks := SplitBlocks(input)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %q", len(blocks), blocks)
	}
	if blocks[0] != "1\nA" || blocks[1] != "2\nB" {
		t.Fatalf("unexpected blocks %q", blocks)
	}
}

func TestSplitBlocksEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\r\n"} {
		if blocks := SplitBlocks(input); len(blocks) != 0 {
			t.Fatalf("expected no blocks for %q, got %q", input, blocks)
		}
	}
}

func TestJoinBlocksRoundTrip(t *testing.T) {
	blocks := SplitBlocks(sampleSRT)
	if got := JoinBlocks(blocks); got != sampleSRT {
		t.Fatalf("round trip mismatch:\n%q\n%q", got, sampleSRT)
	}
}

func TestCountBlocks(t *testing.T) {
	if got := CountBlocks(sampleSRT); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func buildSRT(n int) string {
	blocks := make([]string, n)
	for i := range blocks {
		blocks[i] = fmt.Sprintf("%d\n00:00:%02d,000 --> 00:00:%02d,500\nline %d", i+1, i%60, i%60, i+1)
	}
	return JoinBlocks(blocks)
}
