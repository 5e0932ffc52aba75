package chunk

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/contextforge/internal/types"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
var codeFencePattern = regexp.MustCompile("^```\\s*(\\S*)")

// chunkMarkdown splits content on heading boundaries, recording each
// section's heading text as the chunk name; the heading level is not
// recorded. The language of every fenced code block in a section is
// listed in the chunk's metadata under "code_block_languages".
func chunkMarkdown(path string, content []byte) []types.CodeChunk {
	lines := strings.Split(string(content), "\n")
	var chunks []types.CodeChunk

	sectionStart := 0
	sectionName := ""
	inFence := false

	flush := func(end int) {
		if end <= sectionStart {
			return
		}
		body := strings.Join(lines[sectionStart:end], "\n")
		if strings.TrimSpace(body) == "" {
			return
		}
		chunks = append(chunks, types.CodeChunk{
			Content:   body,
			ChunkType: types.ChunkTextBlock,
			Name:      sectionName,
			StartLine: sectionStart + 1,
			EndLine:   end,
			Language:  "markdown",
			Metadata:  codeLanguages(lines[sectionStart:end]),
		})
	}

	for i, line := range lines {
		if codeFencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush(i)
			sectionStart = i
			sectionName = m[2]
		}
	}
	flush(len(lines))
	return chunks
}

func codeLanguages(section []string) map[string]any {
	var langs []string
	for _, line := range section {
		if m := codeFencePattern.FindStringSubmatch(line); m != nil && m[1] != "" {
			langs = append(langs, m[1])
		}
	}
	if len(langs) == 0 {
		return nil
	}
	return map[string]any{"code_block_languages": langs}
}
