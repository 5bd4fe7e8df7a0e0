package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codescope/codescope/internal/cserrors"
)

const (
	basename = "index"

	graphMagic   = "CSHG"
	dataMagic    = "CSHD"
	formatVersion = uint16(1)
)

// docIDsFile is the compact ordinal -> doc_id mapping written alongside the
// graph and raw-vector files.
type docIDsFile struct {
	Dimension int      `json:"dimension"`
	DocIDs    []string `json:"doc_ids"`
}

// legacyVectorsFile is the pre-HNSW on-disk format: every vector stored
// inline with its doc_id, no graph structure. Loader rebuilds the graph in
// memory by replaying inserts in array order.
type legacyVectorsFile struct {
	Dimension int                 `json:"dimension"`
	Vectors   []legacyVectorEntry `json:"vectors"`
}

type legacyVectorEntry struct {
	DocID  string    `json:"doc_id"`
	Vector []float32 `json:"vector"`
}

func docIDsPath(dir string) string { return filepath.Join(dir, "doc_ids.json") }
func graphPath(dir string) string  { return filepath.Join(dir, basename+".hnsw.graph") }
func dataPath(dir string) string   { return filepath.Join(dir, basename+".hnsw.data") }
func legacyPath(dir string) string { return filepath.Join(dir, "vectors.json") }

// Exists reports whether dir holds a vector index in either the current
// fast-path format or the legacy inline format.
func Exists(dir string) bool {
	if fileExists(docIDsPath(dir)) && fileExists(graphPath(dir)) && fileExists(dataPath(dir)) {
		return true
	}
	return fileExists(legacyPath(dir))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// save writes the doc_ids mapping, the graph structure, and the raw vector
// data to dir. The three files are written to temporary paths and renamed
// into place last, so a reader sees either the complete old set or the
// complete new set, never a partial mix.
func (s *Store) save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cserrors.Wrap(cserrors.VectorLoad, "create vector index directory", err)
	}

	if err := writeJSONAtomic(docIDsPath(dir), docIDsFile{Dimension: s.dimension, DocIDs: s.docIDs}); err != nil {
		return cserrors.Wrap(cserrors.VectorLoad, "write doc_ids.json", err)
	}
	if err := writeGraphAtomic(graphPath(dir), s.graph); err != nil {
		return cserrors.Wrap(cserrors.VectorLoad, "write hnsw graph", err)
	}
	if err := writeDataAtomic(dataPath(dir), s.graph, s.dimension); err != nil {
		return cserrors.Wrap(cserrors.VectorLoad, "write hnsw vector data", err)
	}
	return nil
}

// load populates s from dir, preferring the fast-path graph+data files and
// falling back to replaying the legacy inline vectors.json.
func load(dir string) (*Store, error) {
	if fileExists(docIDsPath(dir)) && fileExists(graphPath(dir)) && fileExists(dataPath(dir)) {
		return loadFastPath(dir)
	}
	if fileExists(legacyPath(dir)) {
		return loadLegacy(dir)
	}
	return nil, cserrors.New(cserrors.VectorLoad, "no vector index found at "+dir, nil)
}

func loadFastPath(dir string) (*Store, error) {
	var ids docIDsFile
	if err := readJSON(docIDsPath(dir), &ids); err != nil {
		return nil, cserrors.Wrap(cserrors.VectorLoad, "read doc_ids.json", err)
	}

	g, err := readGraph(graphPath(dir))
	if err != nil {
		return nil, cserrors.Wrap(cserrors.VectorLoad, "read hnsw graph", err)
	}

	vecs, err := readData(dataPath(dir), ids.Dimension, g.len())
	if err != nil {
		return nil, cserrors.Wrap(cserrors.VectorLoad, "read hnsw vector data", err)
	}
	for i, n := range g.nodes {
		n.vec = vecs[i]
		g.nodes[i] = n
	}

	if len(ids.DocIDs) != g.len() {
		return nil, cserrors.New(cserrors.VectorLoad, "doc_ids count does not match graph node count", nil)
	}

	s := newStore(ids.Dimension)
	s.graph = g
	s.docIDs = ids.DocIDs
	for i, id := range ids.DocIDs {
		s.idToOrdinal[id] = uint32(i)
	}
	return s, nil
}

func loadLegacy(dir string) (*Store, error) {
	var lf legacyVectorsFile
	if err := readJSON(legacyPath(dir), &lf); err != nil {
		return nil, cserrors.Wrap(cserrors.VectorLoad, "read legacy vectors.json", err)
	}

	s := newStore(lf.Dimension)
	for _, entry := range lf.Vectors {
		if err := s.addOne(entry.DocID, entry.Vector); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func writeJSONAtomic(path string, v any) error {
	tmp := path + ".tmp"
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeGraphAtomic serializes the graph's connectivity structure only —
// vectors live in the sibling .hnsw.data file.
func writeGraphAtomic(path string, g *graph) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := &binWriter{w: f}
	w.bytes([]byte(graphMagic))
	w.u16(formatVersion)
	w.u32(uint32(g.len()))
	w.u32(g.entryPoint)
	w.u8(uint8(g.topLayer))
	w.u16(uint16(g.m))
	w.u16(uint16(g.efConstruction))

	for _, n := range g.nodes {
		w.u8(uint8(len(n.neighbors)))
		for _, layer := range n.neighbors {
			w.u16(uint16(len(layer)))
			for _, nb := range layer {
				w.u32(nb)
			}
		}
	}

	if w.err == nil {
		w.err = f.Close()
	} else {
		_ = f.Close()
	}
	if w.err != nil {
		_ = os.Remove(tmp)
		return w.err
	}
	return os.Rename(tmp, path)
}

func readGraph(path string) (*graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := &binReader{r: f}
	var gotMagic [4]byte
	r.bytes(gotMagic[:])
	if string(gotMagic[:]) != graphMagic {
		return nil, fmt.Errorf("invalid graph file magic")
	}
	version := r.u16()
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported graph format version %d", version)
	}

	nodeCount := r.u32()
	entryPoint := r.u32()
	topLayer := int(r.u8())
	m := int(r.u16())
	efConstruction := int(r.u16())
	if r.err != nil {
		return nil, r.err
	}

	nodes := make([]graphNode, nodeCount)
	for i := range nodes {
		layerCount := int(r.u8())
		neighbors := make([][]uint32, layerCount)
		for l := range neighbors {
			count := int(r.u16())
			neighbors[l] = make([]uint32, count)
			for j := range neighbors[l] {
				neighbors[l][j] = r.u32()
			}
		}
		nodes[i] = graphNode{neighbors: neighbors}
	}
	if r.err != nil {
		return nil, r.err
	}

	g := &graph{
		nodes:          nodes,
		entryPoint:     entryPoint,
		topLayer:       topLayer,
		m:              m,
		efConstruction: efConstruction,
		rng:            newGraph().rng,
	}
	return g, nil
}

func writeDataAtomic(path string, g *graph, dimension int) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := &binWriter{w: f}
	w.bytes([]byte(dataMagic))
	w.u16(formatVersion)
	w.u32(uint32(dimension))
	w.u32(uint32(g.len()))
	for _, n := range g.nodes {
		for _, v := range n.vec {
			w.f32(v)
		}
	}

	if w.err == nil {
		w.err = f.Close()
	} else {
		_ = f.Close()
	}
	if w.err != nil {
		_ = os.Remove(tmp)
		return w.err
	}
	return os.Rename(tmp, path)
}

func readData(path string, dimension, expectedCount int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := &binReader{r: f}
	var gotMagic [4]byte
	r.bytes(gotMagic[:])
	if string(gotMagic[:]) != dataMagic {
		return nil, fmt.Errorf("invalid vector data file magic")
	}
	version := r.u16()
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported data format version %d", version)
	}
	dim := int(r.u32())
	count := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if count != expectedCount {
		return nil, fmt.Errorf("vector count %d does not match graph node count %d", count, expectedCount)
	}
	if dimension != 0 && dim != dimension {
		return nil, fmt.Errorf("vector data dimension %d does not match doc_ids dimension %d", dim, dimension)
	}

	vecs := make([][]float32, count)
	for i := range vecs {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = r.f32()
		}
		vecs[i] = vec
	}
	if r.err != nil {
		return nil, r.err
	}
	return vecs, nil
}

type binWriter struct {
	w   io.Writer
	err error
}

func (w *binWriter) bytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}
func (w *binWriter) u8(v uint8)   { w.write(v) }
func (w *binWriter) u16(v uint16) { w.write(v) }
func (w *binWriter) u32(v uint32) { w.write(v) }
func (w *binWriter) f32(v float32) { w.write(v) }
func (w *binWriter) write(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

type binReader struct {
	r   io.Reader
	err error
}

func (r *binReader) bytes(b []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, b)
}
func (r *binReader) u8() uint8 {
	var v uint8
	r.read(&v)
	return v
}
func (r *binReader) u16() uint16 {
	var v uint16
	r.read(&v)
	return v
}
func (r *binReader) u32() uint32 {
	var v uint32
	r.read(&v)
	return v
}
func (r *binReader) f32() float32 {
	var v float32
	r.read(&v)
	return v
}
func (r *binReader) read(v any) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}
