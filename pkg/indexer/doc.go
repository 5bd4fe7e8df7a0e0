// Package indexer orchestrates the bulk and incremental indexing passes
// over a workspace: walking the filesystem, building documents, writing
// them into the text index, and — when semantic search is enabled —
// batching content through an embedder into the vector index.
package indexer
