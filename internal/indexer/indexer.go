// Package indexer orchestrates the fetch -> chunk -> prepare -> embed ->
// upsert pipeline for one repository, reporting progress as it goes.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/FreddyJ01/CodeSleuth/internal/embeddings"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/FreddyJ01/CodeSleuth/internal/textprep"
)

// progressInterval is PROGRESS_INTERVAL from the external interfaces
// contract: a snapshot is emitted every this-many processed files.
const progressInterval = 10

// embedBatch is EMBED_BATCH: the slice size accumulated (chunk, text)
// pairs are submitted in, one slice at a time.
const embedBatch = 50

// extLanguage maps a lower-cased file extension to the chunker's
// language tag. Only extensions with a chunker grammar are listed here;
// repofetcher.ListCodeFiles's broader allow-list admits languages this
// indexer has no grammar for, which are skipped rather than failed.
var extLanguage = map[string]string{
	".cs":   "csharp",
	".java": "java",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
}

// Chunker is the subset of chunker.ASTChunker's contract the Indexer
// depends on.
type Chunker interface {
	Parse(filePath, language string, content []byte) ([]models.Chunk, error)
	Supports(language string) bool
}

// Embedder is the subset of embeddings.Client's contract the Indexer
// depends on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter is the subset of vectorstore.Store's contract the Indexer
// depends on.
type Upserter interface {
	UpsertBulk(ctx context.Context, points []models.IndexPoint, payloads []map[string]any) error
}

// Fetcher is the subset of repofetcher.Fetcher's contract the Indexer
// depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url, repoName string) (string, error)
	ListCodeFiles(localPath string) ([]string, error)
	Read(filePath string) (string, error)
}

// Indexer wires the five pipeline stages together. The sink passed to
// Index, when non-nil, receives a copy of Progress at the points the
// algorithm names; it must not block for long, since the worker will not
// proceed until it returns.
type Indexer struct {
	fetcher  Fetcher
	chunker  Chunker
	prep     *textprep.TextPreparer
	embedder Embedder
	store    Upserter
}

// New builds an Indexer. fetcher, chunker, prep, embedder, and store are
// process-wide singletons shared across concurrently indexing repos.
func New(fetcher Fetcher, chunker Chunker, prep *textprep.TextPreparer, embedder Embedder, store Upserter) *Indexer {
	return &Indexer{fetcher: fetcher, chunker: chunker, prep: prep, embedder: embedder, store: store}
}

type pendingPiece struct {
	chunk models.Chunk
	id    string
	text  string
}

// Index implements index(url, repo_name, progress_sink?, ctx) -> Summary.
func (idx *Indexer) Index(ctx context.Context, url, repoName string, sink func(models.Progress)) (models.Summary, error) {
	start := time.Now()
	progress := models.Progress{Languages: map[string]int{}}
	emit := func() {
		if sink != nil {
			snapshot := progress
			snapshot.Errors = append([]string(nil), progress.Errors...)
			snapshot.Languages = make(map[string]int, len(progress.Languages))
			for k, v := range progress.Languages {
				snapshot.Languages[k] = v
			}
			sink(snapshot)
		}
	}

	localPath, err := idx.fetcher.Fetch(ctx, url, repoName)
	if err != nil {
		return models.Summary{}, err
	}
	emit() // total_files=0 on fetch completion, per step 1

	if err := ctx.Err(); err != nil {
		return models.Summary{}, err
	}

	files, err := idx.fetcher.ListCodeFiles(localPath)
	if err != nil {
		return models.Summary{}, err
	}
	progress.TotalFiles = len(files)
	emit()

	var pending []pendingPiece
	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return models.Summary{}, err
		}

		progress.CurrentFile = rel
		language, ok := extLanguage[strings.ToLower(filepath.Ext(rel))]
		if ok && idx.chunker.Supports(language) {
			progress.Languages[language]++
			absPath := filepath.Join(localPath, rel)
			content, err := idx.fetcher.Read(absPath)
			if err != nil {
				progress.Errors = append(progress.Errors, fmt.Sprintf("%s: %v", rel, err))
			} else {
				chunks, err := idx.chunker.Parse(rel, language, []byte(content))
				if err != nil {
					progress.Errors = append(progress.Errors, fmt.Sprintf("%s: %v", rel, err))
				} else {
					for _, c := range chunks {
						for _, piece := range idx.prep.Prepare(c) {
							pending = append(pending, pendingPiece{chunk: piece.Chunk, id: piece.ID, text: piece.Text})
						}
					}
				}
			}
		}

		progress.ProcessedFiles++
		if progress.ProcessedFiles%progressInterval == 0 || i == len(files)-1 {
			emit()
		}
	}

	chunksIndexed, err := idx.embedAndUpsert(ctx, pending, repoName)
	progress.TotalChunks = chunksIndexed
	if err != nil {
		return models.Summary{}, err
	}

	summary := models.Summary{
		FilesProcessed: progress.ProcessedFiles,
		ChunksIndexed:  chunksIndexed,
		Duration:       time.Since(start),
		Errors:         progress.Errors,
		Languages:      progress.Languages,
	}
	return summary, nil
}

// embedAndUpsert implements step 4: accumulated pairs are processed in
// order, in sequential slices of embedBatch; upserts within a slice run
// in parallel, bounded fan-out. A failing slice aborts the whole job;
// points already upserted by prior slices are not rolled back.
func (idx *Indexer) embedAndUpsert(ctx context.Context, pending []pendingPiece, repoName string) (int, error) {
	indexed := 0
	start := 0
	for _, slice := range embeddings.Batches(pending, embedBatch) {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		texts := make([]string, len(slice))
		for i, p := range slice {
			texts[i] = p.text
		}

		vectors, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return indexed, cserrors.InvalidOperation(fmt.Sprintf("embedding batch starting at index %d failed", start), err)
		}

		points := make([]models.IndexPoint, len(slice))
		payloads := make([]map[string]any, len(slice))
		for i, p := range slice {
			point := models.IndexPoint{
				ID:                  p.id,
				Vector:              vectors[i],
				Kind:                p.chunk.Kind,
				QualifiedName:       p.chunk.QualifiedName,
				ParentQualifiedName: p.chunk.ParentQualifiedName,
				Namespace:           p.chunk.Namespace,
				FilePath:            p.chunk.FilePath,
				StartLine:           p.chunk.StartLine,
				EndLine:             p.chunk.EndLine,
				Content:             p.chunk.Content,
				RepoName:            repoName,
			}
			points[i] = point
			payloads[i] = point.ToPayload()
		}

		if err := idx.upsertParallel(ctx, points, payloads); err != nil {
			return indexed, cserrors.InvalidOperation(fmt.Sprintf("upsert batch starting at index %d failed", start), err)
		}
		indexed += len(slice)
		start += len(slice)
	}
	return indexed, nil
}

// upsertParallel fans the slice's points out across a bounded pool of
// goroutines, each issuing its own UpsertBulk call; this is the
// "parallel within the slice" half of step 4, distinct from the
// sequential-across-slices outer loop.
func (idx *Indexer) upsertParallel(ctx context.Context, points []models.IndexPoint, payloads []map[string]any) error {
	const fanOut = 4
	if len(points) <= fanOut {
		return idx.store.UpsertBulk(ctx, points, payloads)
	}

	part := (len(points) + fanOut - 1) / fanOut
	var wg sync.WaitGroup
	errs := make([]error, fanOut)
	for i := 0; i < fanOut; i++ {
		from := i * part
		if from >= len(points) {
			break
		}
		to := from + part
		if to > len(points) {
			to = len(points)
		}
		wg.Add(1)
		go func(i, from, to int) {
			defer wg.Done()
			errs[i] = idx.store.UpsertBulk(ctx, points[from:to], payloads[from:to])
		}(i, from, to)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
