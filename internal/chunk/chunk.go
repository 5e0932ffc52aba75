// Package chunk implements C3: splitting a source file into semantically
// meaningful CodeChunks. It offers a tree-sitter backed AST strategy and
// a regular-expression fallback, selected per spec §4.3's mode rules.
// Grounded on the teacher's internal/parser package: per-language
// tree-sitter setup and S-expression queries (parser_language_setup.go)
// are reused near-verbatim for Go, Python, JavaScript, and TypeScript;
// the regex strategy is grounded on
// _examples/original_source/services/preprocessor/lang_chunkers.py.
package chunk

import (
	"path/filepath"
	"strings"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

// Mode selects between AST and regex chunking strategies.
type Mode int

const (
	// AUTO uses AST on incremental updates and regex on batch indexing.
	AUTO Mode = iota
	// TREE_SITTER forces the AST strategy, falling back to regex on failure.
	TREE_SITTER
	// REGEX forces the regex strategy.
	REGEX
)

// ParseMode maps the config string representation ("AUTO", "TREE_SITTER",
// "REGEX") onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(s) {
	case "AUTO", "":
		return AUTO, nil
	case "TREE_SITTER":
		return TREE_SITTER, nil
	case "REGEX":
		return REGEX, nil
	default:
		return AUTO, cferrors.New(cferrors.ValidationError, "unknown chunk mode %q", s)
	}
}

// LanguageForPath maps a file extension to the chunker's language
// identifier, or "" if unsupported.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".md", ".markdown":
		return "markdown"
	case ".rs":
		return "rust"
	case ".cpp", ".cc", ".cxx", ".c", ".h", ".hpp":
		return "cpp"
	case ".java":
		return "java"
	case ".cs":
		return "csharp"
	case ".php", ".phtml":
		return "php"
	case ".zig":
		return "zig"
	default:
		return ""
	}
}

// Chunker splits file content into CodeChunks.
type Chunker struct {
	maxChunkSize int
	ast          *astChunker
}

// New constructs a Chunker. maxChunkSize bounds the character length of
// an emitted chunk before it is split (spec §4.3 post-processing).
func New(maxChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 4000
	}
	return &Chunker{maxChunkSize: maxChunkSize, ast: newASTChunker()}
}

// Chunk produces the chunk list for path's content under the requested
// mode. incremental indicates whether this call is part of an
// incremental (as opposed to batch) index, which governs AUTO's choice.
func (c *Chunker) Chunk(path string, content []byte, mode Mode, incremental bool) ([]types.CodeChunk, error) {
	language := LanguageForPath(path)
	if language == "markdown" {
		return splitOversized(chunkMarkdown(path, content), c.maxChunkSize), nil
	}
	if language == "" {
		return splitOversized(chunkRegex(path, "text", content), c.maxChunkSize), nil
	}

	useAST := mode == TREE_SITTER || (mode == AUTO && incremental)
	if useAST {
		chunks, err := c.ast.chunk(path, language, content)
		if err == nil {
			return splitOversized(chunks, c.maxChunkSize), nil
		}
		if mode == TREE_SITTER || mode == AUTO {
			return splitOversized(chunkRegex(path, language, content), c.maxChunkSize), nil
		}
		return nil, err
	}
	return splitOversized(chunkRegex(path, language, content), c.maxChunkSize), nil
}
