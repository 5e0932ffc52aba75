package chunk

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/contextforge/internal/types"
)

// splitOversized splits any chunk whose content exceeds maxSize
// characters into chunk_name_partN sub-chunks along line boundaries,
// preserving contiguous line ranges (spec §4.3 post-processing).
func splitOversized(chunks []types.CodeChunk, maxSize int) []types.CodeChunk {
	if maxSize <= 0 {
		return chunks
	}
	var out []types.CodeChunk
	for _, c := range chunks {
		if len(c.Content) <= maxSize {
			out = append(out, c)
			continue
		}
		out = append(out, splitOne(c, maxSize)...)
	}
	return out
}

func splitOne(c types.CodeChunk, maxSize int) []types.CodeChunk {
	lines := strings.Split(c.Content, "\n")
	baseName := c.Name
	if baseName == "" {
		baseName = "chunk"
	}

	var parts []types.CodeChunk
	var buf []string
	bufStartLine := c.StartLine
	size := 0

	flush := func(lineCount int) {
		if len(buf) == 0 {
			return
		}
		parts = append(parts, types.CodeChunk{
			Content:   strings.Join(buf, "\n"),
			ChunkType: c.ChunkType,
			Name:      fmt.Sprintf("%s_part%d", baseName, len(parts)+1),
			StartLine: bufStartLine,
			EndLine:   bufStartLine + lineCount - 1,
			Language:  c.Language,
			Metadata:  c.Metadata,
		})
		bufStartLine += lineCount
		buf = nil
		size = 0
	}

	for _, line := range lines {
		if size > 0 && size+len(line)+1 > maxSize {
			flush(len(buf))
		}
		buf = append(buf, line)
		size += len(line) + 1
	}
	flush(len(buf))
	return parts
}
