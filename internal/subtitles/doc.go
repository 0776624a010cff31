// Package subtitles splits subtitle text into blank-line separated blocks and
// groups those blocks into bounded, ordered chunks.
//
// Blocks are opaque: the index line, the timing line, and the dialogue are
// never parsed, so any text whose entries are separated by blank lines can be
// chunked. Joining chunk blocks with BlockSeparator rebuilds the normalised
// input exactly.
package subtitles
