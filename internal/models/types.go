// Package models defines the data types shared across the indexing and
// query pipelines: chunks, embeddings, vector-store points, and the
// control-plane's job bookkeeping types.
package models

import "time"

// Kind enumerates the semantic declaration kinds a Chunker can emit. The
// set is open per supported language; C# exercises the full vocabulary,
// other grammars collapse onto a subset.
type Kind string

const (
	KindClass       Kind = "class"
	KindInterface   Kind = "interface"
	KindStruct      Kind = "struct"
	KindRecord      Kind = "record"
	KindEnum        Kind = "enum"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindProperty    Kind = "property"
	KindField       Kind = "field"
	KindEvent       Kind = "event"
	KindIndexer     Kind = "indexer"
)

// Chunk is a typed semantic code unit extracted from one file.
type Chunk struct {
	ID                  string
	Kind                Kind
	QualifiedName       string
	ParentQualifiedName string
	Namespace           string
	FilePath            string
	StartLine           int
	EndLine             int
	Content             string
	Dependencies        []string
	Modifiers           string
	Attrs               map[string]string
}

// IndexPoint is the stored tuple (id, vector, payload) handed to the
// VectorStore. Content is duplicated into the payload so retrieval can
// assemble context without a second fetch.
type IndexPoint struct {
	ID                  string
	Vector              []float32
	Kind                Kind
	QualifiedName       string
	ParentQualifiedName string
	Namespace           string
	FilePath            string
	StartLine           int
	EndLine             int
	Content             string
	RepoName            string
}

// ToPayload converts an IndexPoint into the untyped map the wire edge
// speaks, applying the scalar conversion rule at the boundary.
func (p IndexPoint) ToPayload() map[string]any {
	payload := map[string]any{
		"kind":           string(p.Kind),
		"qualified_name": p.QualifiedName,
		"file_path":      p.FilePath,
		"start_line":     int64(p.StartLine),
		"end_line":       int64(p.EndLine),
		"content":        p.Content,
		"repo_name":      p.RepoName,
	}
	if p.ParentQualifiedName != "" {
		payload["parent_qualified_name"] = p.ParentQualifiedName
	}
	if p.Namespace != "" {
		payload["namespace"] = p.Namespace
	}
	return payload
}

// Hit is a single VectorStore search result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// JobState is a node in the JobRegistry state machine.
type JobState string

const (
	JobIndexing  JobState = "indexing"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Progress is a point-in-time snapshot of an in-flight indexing job.
// Counters are monotonically non-decreasing within a single job.
type Progress struct {
	TotalFiles     int
	ProcessedFiles int
	TotalChunks    int
	CurrentFile    string
	Errors         []string
	// Languages is informational: a running count of files processed per
	// chunker language tag.
	Languages map[string]int
}

// Summary is emitted once on terminal transition from indexing.
type Summary struct {
	FilesProcessed int
	ChunksIndexed  int
	Duration       time.Duration
	Errors         []string
	Languages      map[string]int
}

// Reference is a single citation in a QueryResult, ordered by descending
// score alongside its siblings.
type Reference struct {
	FilePath  string
	StartLine int
	EndLine   int
	Score     float64
}

// QueryResult is the outcome of a QueryEngine.Ask call.
type QueryResult struct {
	Answer     string
	References []Reference
	Duration   time.Duration
}

// JobStatus is what JobRegistry.Status reports to a caller.
type JobStatus struct {
	RepoName string
	State    JobState
	Progress *Progress
	Summary  *Summary
}
