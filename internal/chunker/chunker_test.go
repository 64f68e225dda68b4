package chunker

import (
	"testing"

	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASTChunker_SimpleNamespaceClass(t *testing.T) {
	src := []byte(`namespace N { public class C { private int _x; public void M(string s){} } }`)

	c := New()
	chunks, err := c.Parse("C.cs", "csharp", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	byKind := map[models.Kind]models.Chunk{}
	for _, ch := range chunks {
		byKind[ch.Kind] = ch
	}

	class := byKind[models.KindClass]
	assert.Equal(t, "N.C", class.QualifiedName)
	assert.Equal(t, "public", class.Modifiers)

	field := byKind[models.KindField]
	assert.Equal(t, "C._x", field.QualifiedName)
	assert.Equal(t, "private", field.Modifiers)

	method := byKind[models.KindMethod]
	assert.Equal(t, "C.M", method.QualifiedName)
	assert.Equal(t, "public", method.Modifiers)

	for _, ch := range chunks {
		assert.GreaterOrEqual(t, ch.EndLine, ch.StartLine)
		assert.GreaterOrEqual(t, ch.StartLine, 1)
	}
}

func TestASTChunker_NestedTypes(t *testing.T) {
	src := []byte(`public class Outer { public class Inner { public void NM(){} } }`)

	c := New()
	chunks, err := c.Parse("Outer.cs", "csharp", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	byQN := map[string]models.Chunk{}
	for _, ch := range chunks {
		byQN[ch.QualifiedName] = ch
	}

	require.Contains(t, byQN, "Outer")
	require.Contains(t, byQN, "Outer.Inner")
	require.Contains(t, byQN, "Outer.Inner.NM")

	assert.Equal(t, "Outer", byQN["Outer.Inner"].ParentQualifiedName)
	assert.Equal(t, "Outer.Inner", byQN["Outer.Inner.NM"].ParentQualifiedName)
}

func TestASTChunker_ConstructorAndIndexer(t *testing.T) {
	src := []byte(`public class Box {
	public Box() {}
	public int this[int i] { get { return i; } }
}`)

	c := New()
	chunks, err := c.Parse("Box.cs", "csharp", src)
	require.NoError(t, err)

	var names []string
	for _, ch := range chunks {
		names = append(names, ch.QualifiedName)
	}
	assert.Contains(t, names, "Box..ctor")
	assert.Contains(t, names, "Box.this[]")
}

func TestASTChunker_MultiVariableField(t *testing.T) {
	src := []byte(`public class P { private int a, b; }`)

	c := New()
	chunks, err := c.Parse("P.cs", "csharp", src)
	require.NoError(t, err)

	var fieldNames []string
	for _, ch := range chunks {
		if ch.Kind == models.KindField {
			fieldNames = append(fieldNames, ch.QualifiedName)
		}
	}
	assert.ElementsMatch(t, []string{"P.a", "P.b"}, fieldNames)
}

func TestASTChunker_EmptyFile(t *testing.T) {
	c := New()
	chunks, err := c.Parse("Empty.cs", "csharp", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestASTChunker_UnsupportedLanguage(t *testing.T) {
	c := New()
	_, err := c.Parse("main.rs", "rust", []byte("fn main() {}"))
	require.Error(t, err)
}

func TestChunkID_Deterministic(t *testing.T) {
	id1 := ChunkID("a.cs", 1, 5, "N.C")
	id2 := ChunkID("a.cs", 1, 5, "N.C")
	assert.Equal(t, id1, id2)

	id3 := ChunkID("a.cs", 1, 6, "N.C")
	assert.NotEqual(t, id1, id3)
}
