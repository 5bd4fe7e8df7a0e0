package vectorindex

import (
	"container/heap"
	"sort"
)

// searchResult is one ordinal/distance pair, distance ascending (0 = most
// similar, 2 = most dissimilar for cosine).
type searchResult struct {
	ordinal  uint32
	distance float32
}

// search returns up to k nearest neighbors to query (normalized), excluding
// any ordinal present in skip. skip may be nil.
func (g *graph) search(query []float32, k int, skip map[uint32]bool) []searchResult {
	if len(g.nodes) == 0 {
		return nil
	}

	ep := g.entryPoint
	for lc := g.topLayer; lc > 0; lc-- {
		ep = g.greedyDescend(query, ep, lc)
	}

	beam := k
	if beam < minSearchBeam {
		beam = minSearchBeam
	}

	out := make([]searchResult, 0, k)
	for _, c := range g.searchLayer(query, ep, beam, 0) {
		if skip != nil && skip[c.id] {
			continue
		}
		out = append(out, searchResult{ordinal: c.id, distance: 1 - c.dist})
		if len(out) == k {
			break
		}
	}
	return out
}

// greedyDescend walks from ep to the locally closest node to query at
// layer lc, stopping once no neighbor improves on the current best. Used
// to narrow the entry point down through the upper, sparse layers before
// the real beam search runs at layer 0.
func (g *graph) greedyDescend(query []float32, ep uint32, lc int) uint32 {
	best := ep
	bestSim := cosine(query, g.nodes[ep].vec)

	for {
		improved := false
		if lc < len(g.nodes[best].neighbors) {
			for _, nb := range g.nodes[best].neighbors[lc] {
				if s := cosine(query, g.nodes[nb].vec); s > bestSim {
					bestSim, best, improved = s, nb, true
				}
			}
		}
		if !improved {
			return best
		}
	}
}

// candidate pairs a node ordinal with its similarity to the query vector
// driving the current search.
type candidate struct {
	id   uint32
	dist float32
}

// candidateHeap is a min-heap over similarity, so its root is always the
// current frontier's weakest member — the one searchLayer evicts first
// once the result set fills up.
type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// searchLayer runs a best-first beam search at layer lc starting from ep,
// returning up to ef candidates sorted descending by similarity. It keeps
// two structures over the same frontier: a max-heap of nodes still worth
// expanding (frontier), and a min-heap capped at size ef tracking the best
// ef results seen so far (kept) — so evicting the worst kept result and
// checking whether the frontier can still beat it are both O(log ef).
func (g *graph) searchLayer(query []float32, ep uint32, ef, lc int) []candidate {
	epSim := cosine(query, g.nodes[ep].vec)
	visited := map[uint32]bool{ep: true}

	frontier := &maxCandidateHeap{{id: ep, dist: epSim}}
	heap.Init(frontier)

	kept := &candidateHeap{{id: ep, dist: epSim}}
	heap.Init(kept)

	for frontier.Len() > 0 {
		cur := heap.Pop(frontier).(candidate)
		if kept.Len() >= ef && cur.dist < (*kept)[0].dist {
			break
		}

		if lc >= len(g.nodes[cur.id].neighbors) {
			continue
		}
		for _, nb := range g.nodes[cur.id].neighbors[lc] {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			s := cosine(query, g.nodes[nb].vec)
			if kept.Len() >= ef && s <= (*kept)[0].dist {
				continue
			}
			heap.Push(frontier, candidate{id: nb, dist: s})
			heap.Push(kept, candidate{id: nb, dist: s})
			if kept.Len() > ef {
				heap.Pop(kept)
			}
		}
	}

	result := append([]candidate(nil), (*kept)...)
	sort.Slice(result, func(i, j int) bool { return result[i].dist > result[j].dist })
	return result
}

// maxCandidateHeap is the mirror of candidateHeap, ordered so the most
// similar unexplored node is popped first during the frontier walk above.
type maxCandidateHeap []candidate

func (h maxCandidateHeap) Len() int            { return len(h) }
func (h maxCandidateHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxCandidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxCandidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }
func (h *maxCandidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// nearestM keeps at most m candidates (already sorted closest-first by
// searchLayer) as an inserted node's initial neighbor set.
func nearestM(candidates []candidate, m int) []uint32 {
	n := len(candidates)
	if n > m {
		n = m
	}
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		ids[i] = candidates[i].id
	}
	return ids
}

// pruneNeighbors re-scores id's current neighbor list against id's own
// vector and keeps the maxConn closest, used when an insertion pushes a
// node's layer-0 (or upper-layer) connectivity over budget.
func (g *graph) pruneNeighbors(id uint32, nbs []uint32, maxConn int) []uint32 {
	scored := make([]candidate, len(nbs))
	for i, n := range nbs {
		scored[i] = candidate{id: n, dist: cosine(g.nodes[id].vec, g.nodes[n].vec)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].dist > scored[j].dist })
	if len(scored) > maxConn {
		scored = scored[:maxConn]
	}
	out := make([]uint32, len(scored))
	for i, s := range scored {
		out[i] = s.id
	}
	return out
}
