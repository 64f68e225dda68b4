// Package chunker walks a language-specific syntax tree and emits one
// Chunk per declaration at and below file scope, following the
// namespace/type/member qualification rules for C#-shaped languages.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// maxParseDiagnostics bounds how many syntax-error diagnostics a single
// parse logs before it stops reporting individual ERROR nodes.
const maxParseDiagnostics = 20

// Chunker parses a source file into typed semantic chunks.
type Chunker interface {
	Parse(filePath, language string, content []byte) ([]models.Chunk, error)
	Supports(language string) bool
}

// ASTChunker dispatches on a tagged variant per declaration node type; one
// tree-sitter parser per language is kept, guarded by a mutex, because
// tree-sitter parsers are not safe for concurrent use.
type ASTChunker struct {
	parsers map[string]*sitter.Parser
	mux     sync.Mutex
}

// New builds an ASTChunker with parsers for every supported grammar. C#
// is the fully specified grammar; Java/JavaScript/TypeScript collapse
// onto the {class, interface, method} subset of the kind vocabulary.
func New() *ASTChunker {
	ac := &ASTChunker{parsers: make(map[string]*sitter.Parser)}

	csParser := sitter.NewParser()
	csParser.SetLanguage(csharp.GetLanguage())
	ac.parsers["csharp"] = csParser

	javaParser := sitter.NewParser()
	javaParser.SetLanguage(java.GetLanguage())
	ac.parsers["java"] = javaParser

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())
	ac.parsers["javascript"] = jsParser

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())
	ac.parsers["typescript"] = tsParser

	return ac
}

func (ac *ASTChunker) Supports(language string) bool {
	_, ok := ac.parsers[language]
	return ok
}

// Parse implements the Chunker contract. Syntax errors inside the tree do
// not abort parsing; up to maxParseDiagnostics are logged and whatever
// chunks the partial tree admits are returned. ParseError is reserved for
// a language with no parser and for total parser failure (no tree
// produced).
func (ac *ASTChunker) Parse(filePath, language string, content []byte) ([]models.Chunk, error) {
	ac.mux.Lock()
	parser, ok := ac.parsers[language]
	if !ok {
		ac.mux.Unlock()
		return nil, cserrors.ParseErr(fmt.Sprintf("no parser for language %q", language), nil)
	}
	tree := parser.Parse(nil, content)
	ac.mux.Unlock()

	if tree == nil || tree.RootNode() == nil {
		return nil, cserrors.ParseErr("parser produced no tree for "+filePath, nil)
	}
	root := tree.RootNode()

	diagnostics := 0
	reportErrors(root, filePath, &diagnostics)

	w := &walker{
		filePath: filePath,
		content:  content,
		deps:     dependencies(root, language, content),
	}

	switch language {
	case "csharp":
		w.walkCSharp(root, "", nil)
	case "java", "javascript", "typescript":
		w.walkLoose(root, nil)
	default:
		return nil, cserrors.ParseErr(fmt.Sprintf("no parser for language %q", language), nil)
	}

	return w.chunks, nil
}

func reportErrors(node *sitter.Node, filePath string, count *int) {
	if node == nil || *count >= maxParseDiagnostics {
		return
	}
	if node.IsError() || node.IsMissing() {
		*count++
		log.Printf("chunker: syntax diagnostic in %s at line %d: %s", filePath, node.StartPoint().Row+1, node.Type())
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		reportErrors(node.Child(i), filePath, count)
	}
}

// walker accumulates chunks for a single file.
type walker struct {
	filePath string
	content  []byte
	deps     []string
	chunks   []models.Chunk
}

// ChunkID derives the deterministic, non-cryptographic id spec.md §4.6
// requires so re-indexing replaces rather than duplicates points.
func ChunkID(filePath string, startLine, endLine int, qualifiedName string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%d|%s", filePath, startLine, endLine, qualifiedName)))
	return hex.EncodeToString(sum[:])
}

func (w *walker) emit(kind models.Kind, qualifiedName, parentQualifiedName, namespace string, node *sitter.Node, modifiers string, attrs map[string]string) {
	start := int(node.StartPoint().Row) + 1
	end := int(node.EndPoint().Row) + 1
	content := node.Content(w.content)
	w.chunks = append(w.chunks, models.Chunk{
		ID:                  ChunkID(w.filePath, start, end, qualifiedName),
		Kind:                kind,
		QualifiedName:       qualifiedName,
		ParentQualifiedName: parentQualifiedName,
		Namespace:           namespace,
		FilePath:            w.filePath,
		StartLine:           start,
		EndLine:             end,
		Content:             content,
		Dependencies:        w.deps,
		Modifiers:           modifiers,
		Attrs:               attrs,
	})
}

// allowedModifiers is the closed modifier-token set spec.md §4.1 names.
var allowedModifiers = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "abstract": true, "virtual": true, "override": true,
	"sealed": true, "readonly": true, "const": true,
}

// leadingModifiers collects the closed-set modifier tokens among node's
// direct children, preserving source order. The C# and Java grammars both
// wrap modifier keywords in a named container node ("modifier" in C#,
// "modifiers" in Java) rather than exposing them as direct keyword
// children, so each container is descended into and its own children are
// read via Content() and filtered against allowedModifiers.
func leadingModifiers(node *sitter.Node, content []byte) string {
	var mods []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "modifier", "modifiers":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild == nil {
					continue
				}
				text := grandchild.Content(content)
				if allowedModifiers[text] {
					mods = append(mods, text)
				}
			}
		default:
			if allowedModifiers[child.Type()] {
				mods = append(mods, child.Type())
			}
		}
	}
	return strings.Join(mods, " ")
}

// childByType returns the first direct child whose Type() equals t.
func childByType(node *sitter.Node, t string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c != nil && c.Type() == t {
			return c
		}
	}
	return nil
}

// allChildrenByType returns every direct child whose Type() equals t.
func allChildrenByType(node *sitter.Node, t string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c != nil && c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

func nameOf(node *sitter.Node, content []byte) string {
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return n.Content(content)
}

// dependencies extracts the file's import list, deduplicated, order
// preserved, shared verbatim by every chunk in the file.
func dependencies(root *sitter.Node, language string, content []byte) []string {
	var directiveType string
	switch language {
	case "csharp":
		directiveType = "using_directive"
	case "java":
		directiveType = "import_declaration"
	case "javascript", "typescript":
		directiveType = "import_statement"
	default:
		return nil
	}

	seen := make(map[string]bool)
	var deps []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == directiveType {
			name := strings.TrimSpace(n.Content(content))
			name = strings.TrimPrefix(name, "using")
			name = strings.TrimPrefix(name, "import")
			name = strings.TrimSuffix(strings.TrimSpace(name), ";")
			name = strings.Trim(name, "'\" ")
			if name != "" && !seen[name] {
				seen[name] = true
				deps = append(deps, name)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return deps
}
