// Package textprep assembles a chunk's searchable text and splits
// oversize text into token-safe pieces, using a characters-per-token
// estimator as the authoritative budget and tiktoken-go as a secondary
// diagnostic.
package textprep

import (
	"fmt"
	"log"
	"strings"

	"github.com/FreddyJ01/CodeSleuth/internal/chunker"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/pkoukk/tiktoken-go"
)

// Piece is one token-safe text derived from a Chunk. Split pieces retain
// the parent chunk's identity and payload; only the text differs. ID is
// the VectorStore id for this specific piece (the parent id with an
// ordinal suffix for anything beyond the first piece).
type Piece struct {
	Chunk models.Chunk
	ID    string
	Text  string
}

// TextPreparer implements the C2 contract: prepare(chunk) -> []Piece.
type TextPreparer struct {
	maxTokens     int
	charsPerToken int
	encoding      *tiktoken.Tiktoken
}

// New builds a TextPreparer. maxTokens and charsPerToken come from
// configuration (MAX_TOKENS ≈ 6000, CHARS_PER_TOKEN ≈ 3). The tiktoken
// encoding is best-effort: if it cannot be loaded (e.g. offline), the
// preparer still functions using the char/K estimate alone.
func New(maxTokens, charsPerToken int) *TextPreparer {
	tp := &TextPreparer{maxTokens: maxTokens, charsPerToken: charsPerToken}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("textprep: tiktoken encoding unavailable, continuing with estimator only: %v", err)
	} else {
		tp.encoding = enc
	}
	return tp
}

func (tp *TextPreparer) budgetChars() int {
	return tp.maxTokens * tp.charsPerToken
}

func (tp *TextPreparer) estimateTokens(s string) int {
	return len(s) / tp.charsPerToken
}

// logPreciseCount diagnostically cross-checks the estimator against a
// real BPE tokenizer; it never influences a split decision.
func (tp *TextPreparer) logPreciseCount(filePath, text string) {
	if tp.encoding == nil {
		return
	}
	precise := len(tp.encoding.Encode(text, nil, nil))
	estimate := tp.estimateTokens(text)
	if precise > tp.maxTokens && estimate <= tp.maxTokens {
		log.Printf("textprep: %s estimator (%d) under budget but tiktoken count (%d) exceeds it", filePath, estimate, precise)
	}
}

// Prepare implements prepare(chunk) -> []Piece.
func (tp *TextPreparer) Prepare(c models.Chunk) []Piece {
	parts := make([]string, 0, 3)
	if c.QualifiedName != "" {
		parts = append(parts, c.QualifiedName)
	}
	if c.Namespace != "" {
		parts = append(parts, c.Namespace)
	}
	if c.Content != "" {
		parts = append(parts, c.Content)
	}
	text := strings.Join(parts, "\n")

	tp.logPreciseCount(c.FilePath, text)

	if tp.estimateTokens(text) <= tp.maxTokens {
		return []Piece{{Chunk: c, ID: chunker.ChunkID(c.FilePath, c.StartLine, c.EndLine, c.QualifiedName), Text: text}}
	}

	pieces := tp.split(text)
	out := make([]Piece, 0, len(pieces))
	baseID := chunker.ChunkID(c.FilePath, c.StartLine, c.EndLine, c.QualifiedName)
	for i, p := range pieces {
		id := baseID
		if i > 0 {
			id = fmt.Sprintf("%s-%d", baseID, i)
		}
		out = append(out, Piece{Chunk: c, ID: id, Text: p})
	}
	return out
}

// split implements the three-step budget-closed split: line breaks first,
// then sentence terminators within an oversize line, then a hard
// character split as a last resort.
func (tp *TextPreparer) split(text string) []string {
	budget := tp.budgetChars()
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, tp.packLine(line, budget)...)
	}
	return packGreedy(out, budget)
}

// packLine reduces a single (possibly oversize) line to budget-closed
// pieces, falling through sentence-terminator splitting and then a hard
// character split.
func (tp *TextPreparer) packLine(line string, budget int) []string {
	if len(line) <= budget {
		return []string{line}
	}

	sentences := splitOnTerminators(line)
	var out []string
	for _, s := range sentences {
		if len(s) <= budget {
			out = append(out, s)
			continue
		}
		out = append(out, hardSplit(s, budget)...)
	}
	return out
}

func splitOnTerminators(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	if len(out) == 0 {
		return []string{s}
	}
	return out
}

func hardSplit(s string, budget int) []string {
	if budget <= 0 {
		return []string{s}
	}
	var out []string
	for len(s) > budget {
		out = append(out, s[:budget])
		s = s[budget:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}

// packGreedy greedily packs already-budget-safe fragments (lines or
// sentence/character pieces) into chunks of at most budget characters,
// joined by the separator the fragments originally used ("\n").
func packGreedy(fragments []string, budget int) []string {
	var out []string
	var cur strings.Builder
	for _, f := range fragments {
		candidateLen := cur.Len() + len(f)
		if cur.Len() > 0 {
			candidateLen++ // account for the joining newline
		}
		if cur.Len() > 0 && candidateLen > budget {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(f)
		if cur.Len() > budget {
			// a single fragment alone exceeds budget (only possible when
			// hardSplit received a non-positive budget and returned its
			// input whole; joins are bounded by the check above) — flush
			// immediately.
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
