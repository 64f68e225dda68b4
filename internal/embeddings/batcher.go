package embeddings

// Batches splits items into caller-submittable slices of at most size.
// The Indexer uses this to derive EMBED_BATCH-sized slices; batches
// themselves are processed sequentially by the Indexer to preserve
// backpressure against the embedding backend, diverging from a
// naively-parallel batch scheduler.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var batches [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
