package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/FreddyJ01/CodeSleuth/internal/textprep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	localPath string
	files     []string
	content   map[string]string
	fetchErr  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, repoName string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.localPath, nil
}

func (f *fakeFetcher) ListCodeFiles(localPath string) ([]string, error) {
	return f.files, nil
}

func (f *fakeFetcher) Read(filePath string) (string, error) {
	return f.content[filePath], nil
}

type fakeChunker struct {
	perFile map[string][]models.Chunk
	err     error
}

func (c *fakeChunker) Supports(language string) bool { return true }

func (c *fakeChunker) Parse(filePath, language string, content []byte) ([]models.Chunk, error) {
	return c.perFile[filePath], c.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail {
		return nil, assert.AnError
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3, 4}
	}
	return out, nil
}

type fakeStore struct {
	mu       sync.Mutex
	upserted int
	fail     bool
}

func (s *fakeStore) UpsertBulk(ctx context.Context, points []models.IndexPoint, payloads []map[string]any) error {
	if s.fail {
		return assert.AnError
	}
	s.mu.Lock()
	s.upserted += len(points)
	s.mu.Unlock()
	return nil
}

func twoClasses(path string) []models.Chunk {
	return []models.Chunk{
		{ID: "a", Kind: models.KindClass, QualifiedName: "N.A", FilePath: path, StartLine: 1, EndLine: 3, Content: "class A {}"},
		{ID: "b", Kind: models.KindClass, QualifiedName: "N.B", FilePath: path, StartLine: 4, EndLine: 6, Content: "class B {}"},
	}
}

func TestIndex_HappyPathProducesSummaryAndProgress(t *testing.T) {
	fetcher := &fakeFetcher{
		localPath: "/repo",
		files:     []string{"a.cs", "b.cs"},
		content:   map[string]string{"/repo/a.cs": "class A{}", "/repo/b.cs": "class B{}"},
	}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{
		"a.cs": twoClasses("a.cs"),
		"b.cs": twoClasses("b.cs"),
	}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	prep := textprep.New(6000, 3)

	idx := New(fetcher, chunker, prep, embedder, store)

	var snapshots []models.Progress
	summary, err := idx.Index(context.Background(), "https://example.com/x.git", "x", func(p models.Progress) {
		snapshots = append(snapshots, p)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 4, summary.ChunksIndexed)
	assert.Equal(t, 4, store.upserted)
	require.NotEmpty(t, snapshots)
	assert.Equal(t, 0, snapshots[0].TotalFiles)
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, 2, last.ProcessedFiles)
}

func TestIndex_LanguagesCountedPerSupportedFile(t *testing.T) {
	fetcher := &fakeFetcher{
		localPath: "/repo",
		files:     []string{"a.cs", "b.cs", "c.java", "readme.md"},
		content: map[string]string{
			"/repo/a.cs":   "class A{}",
			"/repo/b.cs":   "class B{}",
			"/repo/c.java": "class C{}",
		},
	}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{
		"a.cs": twoClasses("a.cs"), "b.cs": twoClasses("b.cs"), "c.java": twoClasses("c.java"),
	}}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, chunker, prep, &fakeEmbedder{}, &fakeStore{})

	summary, err := idx.Index(context.Background(), "u", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Languages["csharp"])
	assert.Equal(t, 1, summary.Languages["java"])
	_, hasMd := summary.Languages["md"]
	assert.False(t, hasMd)
}

func TestIndex_ParseErrorIsRecordedFileStillCounted(t *testing.T) {
	fetcher := &fakeFetcher{
		localPath: "/repo",
		files:     []string{"a.cs"},
		content:   map[string]string{"/repo/a.cs": "class A{}"},
	}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{}, err: assert.AnError}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, chunker, prep, &fakeEmbedder{}, &fakeStore{})

	summary, err := idx.Index(context.Background(), "u", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, 0, summary.ChunksIndexed)
	assert.Len(t, summary.Errors, 1)
}

func TestIndex_EmbeddingFailureAbortsWithInvalidOperation(t *testing.T) {
	fetcher := &fakeFetcher{
		localPath: "/repo",
		files:     []string{"a.cs"},
		content:   map[string]string{"/repo/a.cs": "class A{}"},
	}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{"a.cs": twoClasses("a.cs")}}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, chunker, prep, &fakeEmbedder{fail: true}, &fakeStore{})

	_, err := idx.Index(context.Background(), "u", "r", nil)
	require.Error(t, err)
}

func TestIndex_CancellationHonoredBetweenFiles(t *testing.T) {
	fetcher := &fakeFetcher{
		localPath: "/repo",
		files:     []string{"a.cs", "b.cs", "c.cs"},
		content:   map[string]string{"/repo/a.cs": "x", "/repo/b.cs": "x", "/repo/c.cs": "x"},
	}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{}}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, chunker, prep, &fakeEmbedder{}, &fakeStore{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the file list is known, so the check at the first file
	// boundary is the one that stops the run.
	_, err := idx.Index(ctx, "u", "r", func(p models.Progress) {
		if p.TotalFiles > 0 {
			cancel()
		}
	})
	require.Error(t, err)
}

func TestIndex_ManyChunksSplitAcrossSequentialBatches(t *testing.T) {
	var chunks []models.Chunk
	for i := 0; i < 120; i++ {
		chunks = append(chunks, models.Chunk{
			ID: "c", Kind: models.KindClass, QualifiedName: "N.C", FilePath: "a.cs",
			StartLine: i, EndLine: i, Content: "class C{}",
		})
	}
	fetcher := &fakeFetcher{localPath: "/repo", files: []string{"a.cs"}, content: map[string]string{"/repo/a.cs": "x"}}
	chunker := &fakeChunker{perFile: map[string][]models.Chunk{"a.cs": chunks}}
	prep := textprep.New(6000, 3)
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	idx := New(fetcher, chunker, prep, embedder, store)

	summary, err := idx.Index(context.Background(), "u", "r", nil)
	require.NoError(t, err)
	assert.Equal(t, 120, summary.ChunksIndexed)
	assert.Equal(t, 3, embedder.calls) // 120 / EMBED_BATCH(50) -> 3 sequential batches
	assert.Equal(t, 120, store.upserted)
}

func TestIndex_FetchFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{fetchErr: assert.AnError}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, &fakeChunker{}, prep, &fakeEmbedder{}, &fakeStore{})

	_, err := idx.Index(context.Background(), "u", "r", nil)
	require.Error(t, err)
}

func TestIndex_DurationIsStamped(t *testing.T) {
	fetcher := &fakeFetcher{localPath: "/repo", files: nil, content: map[string]string{}}
	prep := textprep.New(6000, 3)
	idx := New(fetcher, &fakeChunker{}, prep, &fakeEmbedder{}, &fakeStore{})

	summary, err := idx.Index(context.Background(), "u", "r", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.Duration, time.Duration(0))
}
