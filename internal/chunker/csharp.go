package chunker

import (
	"strings"

	"github.com/FreddyJ01/CodeSleuth/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

var csharpTypeKinds = map[string]models.Kind{
	"class_declaration":     models.KindClass,
	"interface_declaration": models.KindInterface,
	"struct_declaration":    models.KindStruct,
	"record_declaration":    models.KindRecord,
	"enum_declaration":      models.KindEnum,
}

// walkCSharp recursively descends a C# tree, maintaining the enclosing
// namespace and the chain of enclosing simple type names so it can build
// qualified names per the nesting rule: a namespace-scoped type is
// Namespace.Type; nested types chain by simple name; members are
// qualified by the chain of enclosing simple type names, without the
// namespace (C.M for a member of N.C).
func (w *walker) walkCSharp(node *sitter.Node, namespace string, typeChain []string) {
	if node == nil {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "namespace_declaration":
			ns := nameOf(child, w.content)
			if ns == "" {
				if n := child.ChildByFieldName("name"); n != nil {
					ns = n.Content(w.content)
				}
			}
			body := childByType(child, "declaration_list")
			if body != nil {
				w.walkCSharp(body, ns, nil)
			}

		case "class_declaration", "interface_declaration", "struct_declaration", "record_declaration":
			w.visitCSharpType(child, namespace, typeChain)

		case "enum_declaration":
			w.visitCSharpEnum(child, namespace, typeChain)

		default:
			// Not a declaration boundary we stop at; keep descending with
			// the same scope (covers file-scoped namespaces, attribute
			// lists, and other wrapper nodes).
			w.walkCSharp(child, namespace, typeChain)
		}
	}
}

func qualify(namespace string, typeChain []string, simple string) string {
	if len(typeChain) == 0 {
		if namespace == "" {
			return simple
		}
		return namespace + "." + simple
	}
	return strings.Join(typeChain, ".") + "." + simple
}

func (w *walker) visitCSharpType(node *sitter.Node, namespace string, typeChain []string) {
	simple := nameOf(node, w.content)
	if simple == "" {
		return
	}
	qn := qualify(namespace, typeChain, simple)
	var parent string
	if len(typeChain) > 0 {
		parent = strings.Join(typeChain, ".")
	}

	kind := csharpTypeKinds[node.Type()]
	w.emit(kind, qn, parent, namespace, node, leadingModifiers(node, w.content), nil)

	nextChain := append(append([]string{}, typeChain...), simple)
	body := childByType(node, "declaration_list")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		w.visitCSharpMember(body.Child(i), namespace, nextChain)
	}
}

func (w *walker) visitCSharpEnum(node *sitter.Node, namespace string, typeChain []string) {
	simple := nameOf(node, w.content)
	if simple == "" {
		return
	}
	qn := qualify(namespace, typeChain, simple)
	var parent string
	if len(typeChain) > 0 {
		parent = strings.Join(typeChain, ".")
	}
	w.emit(models.KindEnum, qn, parent, namespace, node, leadingModifiers(node, w.content), nil)
}

// visitCSharpMember dispatches one declaration within a type body: nested
// types recurse, members emit a single chunk (fields emit one per
// declared variable), everything else is skipped.
func (w *walker) visitCSharpMember(node *sitter.Node, namespace string, typeChain []string) {
	if node == nil {
		return
	}
	parent := strings.Join(typeChain, ".")

	switch node.Type() {
	case "class_declaration", "interface_declaration", "struct_declaration", "record_declaration":
		w.visitCSharpType(node, namespace, typeChain)
	case "enum_declaration":
		w.visitCSharpEnum(node, namespace, typeChain)

	case "method_declaration":
		name := nameOf(node, w.content)
		if name == "" {
			return
		}
		attrs := map[string]string{}
		if rt := node.ChildByFieldName("returns"); rt != nil {
			attrs["return_type"] = rt.Content(w.content)
		}
		if params := node.ChildByFieldName("parameters"); params != nil {
			attrs["parameters"] = params.Content(w.content)
		}
		w.emit(models.KindMethod, parent+"."+name, parent, namespace, node, leadingModifiers(node, w.content), attrs)

	case "constructor_declaration":
		w.emit(models.KindConstructor, parent+"..ctor", parent, namespace, node, leadingModifiers(node, w.content), nil)

	case "indexer_declaration":
		w.emit(models.KindIndexer, parent+".this[]", parent, namespace, node, leadingModifiers(node, w.content), nil)

	case "property_declaration":
		name := nameOf(node, w.content)
		if name == "" {
			return
		}
		attrs := map[string]string{}
		if t := node.ChildByFieldName("type"); t != nil {
			attrs["type"] = t.Content(w.content)
		}
		w.emit(models.KindProperty, parent+"."+name, parent, namespace, node, leadingModifiers(node, w.content), attrs)

	case "event_declaration":
		name := nameOf(node, w.content)
		if name == "" {
			return
		}
		w.emit(models.KindEvent, parent+"."+name, parent, namespace, node, leadingModifiers(node, w.content), nil)

	case "event_field_declaration":
		w.visitCSharpFieldLike(node, models.KindEvent, namespace, typeChain)

	case "field_declaration":
		w.visitCSharpFieldLike(node, models.KindField, namespace, typeChain)
	}
}

// visitCSharpFieldLike handles field_declaration and event_field_declaration,
// both of which wrap a variable_declaration that may declare multiple
// variables. One chunk is emitted per declared variable, all sharing the
// field's full source span per spec.
func (w *walker) visitCSharpFieldLike(node *sitter.Node, kind models.Kind, namespace string, typeChain []string) {
	parent := strings.Join(typeChain, ".")
	decl := childByType(node, "variable_declaration")
	if decl == nil {
		return
	}
	attrs := map[string]string{}
	if t := decl.ChildByFieldName("type"); t != nil {
		attrs["type"] = t.Content(w.content)
	}
	declarators := allChildrenByType(decl, "variable_declarator")
	modifiers := leadingModifiers(node, w.content)
	for _, d := range declarators {
		name := nameOf(d, w.content)
		if name == "" {
			if idNode := childByType(d, "identifier"); idNode != nil {
				name = idNode.Content(w.content)
			}
		}
		if name == "" {
			continue
		}
		w.emit(kind, parent+"."+name, parent, namespace, node, modifiers, attrs)
	}
}

// walkLoose is used for Java/JavaScript/TypeScript, where the kind
// vocabulary collapses onto {class, interface, method}: it recognizes
// the corpus's existing semantic node types without the full C#
// qualification machinery, using simple-name chains for nesting.
func (w *walker) walkLoose(node *sitter.Node, typeChain []string) {
	if node == nil {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "class_declaration":
			w.visitLooseClass(child, typeChain, models.KindClass)
		case "interface_declaration":
			w.visitLooseClass(child, typeChain, models.KindInterface)
		case "method_definition", "method_declaration":
			w.visitLooseMethod(child, typeChain)
		case "function_declaration":
			name := nameOf(child, w.content)
			if name != "" {
				w.emit(models.KindMethod, name, "", "", child, "", nil)
			}
			w.walkLoose(child, typeChain)
		default:
			w.walkLoose(child, typeChain)
		}
	}
}

func (w *walker) visitLooseClass(node *sitter.Node, typeChain []string, kind models.Kind) {
	simple := nameOf(node, w.content)
	if simple == "" {
		w.walkLoose(node, typeChain)
		return
	}
	qn := qualify("", typeChain, simple)
	var parent string
	if len(typeChain) > 0 {
		parent = strings.Join(typeChain, ".")
	}
	w.emit(kind, qn, parent, "", node, leadingModifiers(node, w.content), nil)

	body := childByType(node, "class_body")
	if body == nil {
		body = childByType(node, "interface_body")
	}
	nextChain := append(append([]string{}, typeChain...), simple)
	if body != nil {
		w.walkLoose(body, nextChain)
	}
}

func (w *walker) visitLooseMethod(node *sitter.Node, typeChain []string) {
	name := nameOf(node, w.content)
	if name == "" {
		return
	}
	parent := strings.Join(typeChain, ".")
	qn := name
	if parent != "" {
		qn = parent + "." + name
	}
	w.emit(models.KindMethod, qn, parent, "", node, leadingModifiers(node, w.content), nil)
}
