package chunk

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/contextforge/internal/types"
)

// blockPattern pairs a regex that matches a construct's opening (capturing
// its name in group 1) with the chunk type it produces. Grounded on
// _examples/original_source/services/preprocessor/lang_chunkers.py's
// JavaScriptChunker patterns, generalized to Go and Python sources too.
type blockPattern struct {
	re        *regexp.Regexp
	chunkType types.ChunkType
}

var jsLikePatterns = []blockPattern{
	{regexp.MustCompile(`(?m)(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\([^)]*\)\s*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\([^)]*\)\s*=>\s*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)(?:export\s+)?class\s+(\w+)(?:\s+extends\s+\w+)?\s*\{`), types.ChunkClass},
}

var jsImportPattern = regexp.MustCompile(`(?m)^import\s+.*?from\s+['"][^'"]+['"];?`)

var goPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?(\w+)\s*\([^)]*\)[^{]*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)^type\s+(\w+)\s+(?:struct|interface)\s*\{`), types.ChunkClass},
}

var goImportPattern = regexp.MustCompile(`(?ms)^import\s+\((.*?)^\)`)

var pyDefPattern = regexp.MustCompile(`(?m)^(?:async\s+)?def\s+(\w+)\s*\([^)]*\)\s*(?:->[^:]+)?:`)
var pyClassPattern = regexp.MustCompile(`(?m)^class\s+(\w+)(?:\([^)]*\))?\s*:`)
var pyImportPattern = regexp.MustCompile(`(?m)^(?:import\s+\S+|from\s+\S+\s+import\s+.+)$`)

var rustPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+(\w+)\s*(?:<[^>]*>)?\s*\([^)]*\)[^{]*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?struct\s+(\w+)`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?enum\s+(\w+)\s*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?trait\s+(\w+)\s*\{`), types.ChunkClass},
}
var rustImportPattern = regexp.MustCompile(`(?m)^use\s+[^;]+;`)

var cppPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^[\w:<>*&\s]+?\s(\w+)\s*\([^;{]*\)\s*(?:const\s*)?\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)^\s*class\s+(\w+)(?:\s*:\s*[^{]+)?\s*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*struct\s+(\w+)\s*\{`), types.ChunkClass},
}
var cppImportPattern = regexp.MustCompile(`(?m)^#include\s*[<"][^>"]+[>"]`)

var javaPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected)?\s*(?:static\s+)?(?:final\s+)?[\w<>\[\]]+\s+(\w+)\s*\([^)]*\)\s*(?:throws\s+[\w,\s]+)?\s*\{`), types.ChunkMethod},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected)?\s*(?:abstract\s+)?(?:final\s+)?class\s+(\w+)[^{]*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected)?\s*interface\s+(\w+)[^{]*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected)?\s*enum\s+(\w+)\s*\{`), types.ChunkClass},
}
var javaImportPattern = regexp.MustCompile(`(?m)^import\s+[\w.]+;`)

var csharpPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected|internal)?\s*(?:static\s+)?(?:async\s+)?[\w<>\[\]]+\s+(\w+)\s*\([^)]*\)\s*\{`), types.ChunkMethod},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected|internal)?\s*(?:abstract\s+)?(?:sealed\s+)?class\s+(\w+)[^{]*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected|internal)?\s*interface\s+(\w+)[^{]*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected|internal)?\s*struct\s+(\w+)[^{]*\{`), types.ChunkClass},
}
var csharpImportPattern = regexp.MustCompile(`(?m)^using\s+[\w.]+;`)

var phpPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^\s*(?:public|private|protected)?\s*(?:static\s+)?function\s+(\w+)\s*\([^)]*\)\s*(?::\s*\??\w+)?\s*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)^\s*class\s+(\w+)(?:\s+extends\s+\w+)?(?:\s+implements\s+[\w,\s]+)?\s*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*interface\s+(\w+)[^{]*\{`), types.ChunkClass},
	{regexp.MustCompile(`(?m)^\s*trait\s+(\w+)\s*\{`), types.ChunkClass},
}
var phpImportPattern = regexp.MustCompile(`(?m)^use\s+[\w\\]+(?:\s+as\s+\w+)?;`)

var zigPatterns = []blockPattern{
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+(\w+)\s*\([^)]*\)[^{]*\{`), types.ChunkFunction},
	{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?const\s+(\w+)\s*=\s*struct\s*\{`), types.ChunkClass},
}

// chunkRegex applies pattern-based chunking for a language the AST
// strategy doesn't cover, or when regex mode is forced.
func chunkRegex(path, language string, content []byte) []types.CodeChunk {
	switch language {
	case "javascript", "typescript":
		return chunkBraceLanguage(path, language, content, jsLikePatterns, jsImportPattern)
	case "go":
		chunks := chunkBraceLanguage(path, language, content, goPatterns, nil)
		chunks = append(chunks, chunkGoImports(path, content)...)
		return chunks
	case "python":
		return chunkPython(path, content)
	case "rust":
		chunks := chunkBraceLanguage(path, language, content, rustPatterns, rustImportPattern)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	case "cpp":
		chunks := chunkBraceLanguage(path, language, content, cppPatterns, cppImportPattern)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	case "java":
		chunks := chunkBraceLanguage(path, language, content, javaPatterns, javaImportPattern)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	case "csharp":
		chunks := chunkBraceLanguage(path, language, content, csharpPatterns, csharpImportPattern)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	case "php":
		chunks := chunkBraceLanguage(path, language, content, phpPatterns, phpImportPattern)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	case "zig":
		chunks := chunkBraceLanguage(path, language, content, zigPatterns, nil)
		if len(chunks) == 0 {
			return chunkTextBlocks(path, language, content, 50)
		}
		return chunks
	default:
		return chunkTextBlocks(path, language, content, 50)
	}
}

func chunkBraceLanguage(path, language string, content []byte, patterns []blockPattern, importPattern *regexp.Regexp) []types.CodeChunk {
	text := string(content)
	var chunks []types.CodeChunk

	if importPattern != nil {
		for _, loc := range importPattern.FindAllStringIndex(text, -1) {
			chunks = append(chunks, types.CodeChunk{
				Content:   text[loc[0]:loc[1]],
				ChunkType: types.ChunkImport,
				StartLine: lineOf(text, loc[0]),
				EndLine:   lineOf(text, loc[1]),
				Language:  language,
			})
		}
	}

	for _, bp := range patterns {
		matches := bp.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			openBrace := m[1] - 1
			endPos := matchBrace(text, openBrace)
			if endPos < 0 {
				continue
			}
			name := "anonymous"
			if len(m) >= 4 && m[2] >= 0 {
				name = text[m[2]:m[3]]
			}
			chunks = append(chunks, types.CodeChunk{
				Content:   text[m[0] : endPos+1],
				ChunkType: bp.chunkType,
				Name:      name,
				StartLine: lineOf(text, m[0]),
				EndLine:   lineOf(text, endPos+1),
				Language:  language,
			})
		}
	}
	return chunks
}

// matchBrace finds the index of the closing brace matching the '{' at
// openBrace, or -1 if unbalanced.
func matchBrace(text string, openBrace int) int {
	depth := 0
	for i := openBrace; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func chunkGoImports(path string, content []byte) []types.CodeChunk {
	text := string(content)
	loc := goImportPattern.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	return []types.CodeChunk{{
		Content:   text[loc[0]:loc[1]],
		ChunkType: types.ChunkImport,
		StartLine: lineOf(text, loc[0]),
		EndLine:   lineOf(text, loc[1]),
		Language:  "go",
	}}
}

// chunkPython extracts function/class/import constructs by
// indentation-delimited blocks, since Go has no native Python AST.
func chunkPython(path string, content []byte) []types.CodeChunk {
	lines := strings.Split(string(content), "\n")
	var chunks []types.CodeChunk

	if doc, end := extractPythonDocstring(lines); doc != "" {
		chunks = append(chunks, types.CodeChunk{
			Content:   doc,
			ChunkType: types.ChunkDocstring,
			StartLine: 1,
			EndLine:   end,
			Language:  "python",
		})
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := pyDefPattern.FindStringSubmatch(line); m != nil {
			end := indentedBlockEnd(lines, i)
			chunks = append(chunks, types.CodeChunk{
				Content:   strings.Join(lines[i:end], "\n"),
				ChunkType: types.ChunkFunction,
				Name:      m[1],
				StartLine: i + 1,
				EndLine:   end,
				Language:  "python",
			})
			continue
		}
		if m := pyClassPattern.FindStringSubmatch(line); m != nil {
			end := indentedBlockEnd(lines, i)
			chunks = append(chunks, types.CodeChunk{
				Content:   strings.Join(lines[i:end], "\n"),
				ChunkType: types.ChunkClass,
				Name:      m[1],
				StartLine: i + 1,
				EndLine:   end,
				Language:  "python",
			})
			continue
		}
		if pyImportPattern.MatchString(line) {
			chunks = append(chunks, types.CodeChunk{
				Content:   line,
				ChunkType: types.ChunkImport,
				StartLine: i + 1,
				EndLine:   i + 1,
				Language:  "python",
			})
		}
	}
	if len(chunks) == 0 {
		return chunkTextBlocks(path, "python", content, 50)
	}
	return chunks
}

func extractPythonDocstring(lines []string) (string, int) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(trimmed, `"""`) && !strings.HasPrefix(trimmed, "'''") {
			return "", 0
		}
		quote := trimmed[:3]
		rest := trimmed[3:]
		if end := strings.Index(rest, quote); end >= 0 {
			return trimmed, i + 1
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.Contains(lines[j], quote) {
				return strings.Join(lines[i:j+1], "\n"), j + 1
			}
		}
		return strings.Join(lines[i:], "\n"), len(lines)
	}
	return "", 0
}

// indentedBlockEnd returns the exclusive end index of the block starting
// at header (a def/class line) by scanning for the first subsequent line
// whose indentation is not deeper than header's.
func indentedBlockEnd(lines []string, header int) int {
	headerIndent := indentOf(lines[header])
	i := header + 1
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= headerIndent {
			break
		}
	}
	for i > header+1 && strings.TrimSpace(lines[i-1]) == "" {
		i--
	}
	return i
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func chunkTextBlocks(path, language string, content []byte, linesPerBlock int) []types.CodeChunk {
	lines := strings.Split(string(content), "\n")
	var chunks []types.CodeChunk
	for i := 0; i < len(lines); i += linesPerBlock {
		end := i + linesPerBlock
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, types.CodeChunk{
			Content:   strings.Join(lines[i:end], "\n"),
			ChunkType: types.ChunkTextBlock,
			StartLine: i + 1,
			EndLine:   end,
			Language:  language,
		})
	}
	return chunks
}

func lineOf(text string, pos int) int {
	return strings.Count(text[:pos], "\n") + 1
}
