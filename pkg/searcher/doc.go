// Package searcher implements literal, regex, and hybrid search over a
// workspace's text and vector indexes, fusing the latter two branches with
// Reciprocal Rank Fusion.
package searcher
