package subtitles

// DefaultChunkSize is the maximum number of blocks sent in one request.
const DefaultChunkSize = 60

// Chunk is a contiguous run of blocks. Index is zero-based.
type Chunk struct {
	Index  int
	Blocks []string
}

// Text renders the chunk as it is sent to the provider.
func (c Chunk) Text() string {
	return JoinBlocks(c.Blocks)
}

// Len returns the number of blocks in the chunk.
func (c Chunk) Len() int {
	return len(c.Blocks)
}

// ChunkBlocks groups blocks into chunks of at most size blocks, preserving
// order. A non-positive size falls back to DefaultChunkSize.
func ChunkBlocks(blocks []string, size int) []Chunk {
	if len(blocks) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (len(blocks)+size-1)/size)
	for start := 0; start < len(blocks); start += size {
		end := min(start+size, len(blocks))
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Blocks: blocks[start:end:end],
		})
	}
	return chunks
}

// Segment splits text into blocks and groups them into chunks.
func Segment(text string, size int) []Chunk {
	return ChunkBlocks(SplitBlocks(text), size)
}

// Reassemble joins chunk outputs in order with BlockSeparator.
func Reassemble(parts []string) string {
	return JoinBlocks(parts)
}
