package chunk

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/contextforge/internal/types"
)

// languageSetup pairs a parser with the query used to find chunk-worthy
// nodes in its grammar.
type languageSetup struct {
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
}

// astChunker holds one parser+query pair per supported language. Setup
// mirrors the teacher's parser_language_setup.go; queries for go, python,
// and javascript are reused near-verbatim, narrowed to the
// function/method/class/import captures C3 needs.
type astChunker struct {
	mu   sync.Mutex
	set  map[string]*languageSetup
}

func newASTChunker() *astChunker {
	a := &astChunker{set: make(map[string]*languageSetup)}
	a.setupGo()
	a.setupPython()
	a.setupJavaScript()
	a.setupTypeScript()
	a.setupRust()
	a.setupCpp()
	a.setupJava()
	a.setupCSharp()
	a.setupPHP()
	a.setupZig()
	return a
}

func (a *astChunker) setupGo() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration name: (field_identifier) @method.name) @method
        (type_declaration (type_spec name: (type_identifier) @type.name)) @type
        (import_spec path: (interpreted_string_literal) @import.path) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["go"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupPython() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (class_definition
            body: (block
                (function_definition name: (identifier) @method.name))) @method
        (function_definition name: (identifier) @function.name) @function
        (class_definition name: (identifier) @class.name) @class
        (import_statement) @import
        (import_from_statement) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["python"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupJavaScript() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
        (import_statement source: (string) @import.source) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["javascript"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupTypeScript() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (function_declaration name: (identifier) @function.name) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
        (import_statement source: (string) @import.source) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["typescript"] = &languageSetup{parser: parser, query: query}
	}
}

// setupRust, setupCpp, setupJava, setupCSharp, setupPHP, and setupZig mirror
// the teacher's parser_language_setup.go queries for these grammars,
// narrowed to the function/method/class/import captures chunkTypeFor maps
// onto C3's chunk types (the teacher's fuller capture set — fields,
// properties, namespaces, delegates — serves its own symbol graph, which is
// out of scope here).

func (a *astChunker) setupRust() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_rust.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (impl_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (trait_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @struct.name) @struct
        (enum_item name: (type_identifier) @enum.name) @enum
        (trait_item name: (type_identifier) @interface.name) @interface
        (use_declaration) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["rust"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupCpp() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
        (class_specifier name: (type_identifier) @class.name) @class
        (struct_specifier name: (type_identifier) @struct.name) @struct
        (enum_specifier name: (type_identifier) @enum.name) @enum
        (preproc_include) @import
        (using_declaration) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["cpp"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupJava() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_java.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name) @class
        (record_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @enum.name) @enum
        (import_declaration) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["java"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupCSharp() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (struct_declaration name: (identifier) @struct.name) @struct
        (record_declaration name: (identifier) @record.name) @record
        (enum_declaration name: (identifier) @enum.name) @enum
        (using_directive (qualified_name) @import.name) @import
        (using_directive (identifier) @import.name) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["csharp"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupPHP() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (class_declaration name: (name) @class.name) @class
        (interface_declaration name: (name) @interface.name) @interface
        (trait_declaration name: (name) @trait.name) @trait
        (enum_declaration name: (name) @enum.name) @enum
        (function_definition name: (name) @function.name) @function
        (method_declaration name: (name) @method.name) @method
        (namespace_use_declaration) @import
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["php"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) setupZig() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_zig.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	queryStr := `
        (function_declaration (identifier) @function.name) @function
        (variable_declaration
          (identifier) @struct.name
          (struct_declaration) @struct)
        (variable_declaration
          (identifier) @struct.name
          (union_declaration) @struct)
    `
	query, _ := tree_sitter.NewQuery(language, queryStr)
	if query != nil {
		a.set["zig"] = &languageSetup{parser: parser, query: query}
	}
}

func (a *astChunker) chunk(path, language string, content []byte) ([]types.CodeChunk, error) {
	a.mu.Lock()
	setup, ok := a.set[language]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no AST grammar registered for %s", language)
	}

	tree := setup.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s", path)
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(setup.query, tree.RootNode(), content)
	captureNames := setup.query.CaptureNames()

	var chunks []types.CodeChunk
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		names := make(map[string]string, 2)
		for _, c := range match.Captures {
			cn := captureNames[c.Index]
			if strings.HasSuffix(cn, ".name") || strings.HasSuffix(cn, ".path") || strings.HasSuffix(cn, ".source") {
				names[cn] = string(content[c.Node.StartByte():c.Node.EndByte()])
			}
		}
		for _, c := range match.Captures {
			cn := captureNames[c.Index]
			chunkType, ok := chunkTypeFor(cn)
			if !ok {
				continue
			}
			node := c.Node
			name := names[cn+".name"]
			if name == "" {
				name = names[cn+".path"]
			}
			if name == "" {
				name = names[cn+".source"]
			}
			chunks = append(chunks, types.CodeChunk{
				Content:   string(content[node.StartByte():node.EndByte()]),
				ChunkType: chunkType,
				Name:      name,
				StartLine: int(node.StartPosition().Row) + 1,
				EndLine:   int(node.EndPosition().Row) + 1,
				Language:  language,
			})
		}
	}
	return chunks, nil
}

func chunkTypeFor(captureName string) (types.ChunkType, bool) {
	switch captureName {
	case "function":
		return types.ChunkFunction, true
	case "method", "constructor":
		return types.ChunkMethod, true
	case "class", "interface", "type", "struct", "enum", "trait", "record":
		return types.ChunkClass, true
	case "import":
		return types.ChunkImport, true
	default:
		return 0, false
	}
}
