// Package document builds the Document record stored in the text and
// vector indexes from a file discovered by the walker.
package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/codescope/codescope/internal/cserrors"
)

// Document is the unit stored in both the text and vector indexes.
// Chunking is out of scope for the current core: ChunkID and ParentDoc
// exist only to keep the schema forward-compatible and are always empty.
type Document struct {
	DocID     string
	Path      string
	Workspace string
	Content   string
	Extension string
	LineStart int
	LineEnd   int
	MTime     int64
	Size      int64
	ChunkID   string
	ParentDoc string
}

// Build reads absPath (a file under workspaceRoot, relPath workspace-relative
// and slash-separated as produced by the walker) and assembles its Document.
// Invalid UTF-8 sequences are lossily decoded rather than rejected. Files
// larger than maxSize yield a FileTooLarge error so the caller can record it
// as a skip rather than a hard failure.
func Build(workspaceRoot, relPath string, maxSize int64) (Document, error) {
	absPath := filepath.Join(workspaceRoot, filepath.FromSlash(relPath))

	info, err := os.Stat(absPath)
	if err != nil {
		return Document{}, cserrors.Wrap(cserrors.Io, "stat document file", err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return Document{}, cserrors.New(cserrors.FileTooLarge, absPath, nil).
			WithDetail("size", strconv.FormatInt(info.Size(), 10)).
			WithDetail("max_size", strconv.FormatInt(maxSize, 10))
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return Document{}, cserrors.Wrap(cserrors.Io, "read document file", err)
	}

	content := decodeLossy(raw)
	lineEnd := countLines(content)

	return Document{
		DocID:     filepath.ToSlash(relPath),
		Path:      filepath.ToSlash(relPath),
		Workspace: workspaceRoot,
		Content:   content,
		Extension: strings.ToLower(strings.TrimPrefix(filepath.Ext(relPath), ".")),
		LineStart: 1,
		LineEnd:   lineEnd,
		MTime:     info.ModTime().Unix(),
		Size:      info.Size(),
	}, nil
}

// decodeLossy replaces invalid UTF-8 byte sequences with the Unicode
// replacement character rather than failing, matching the lenient decoding
// the rest of the pipeline expects of arbitrary source files.
func decodeLossy(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			raw = raw[1:]
			continue
		}
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}

func countLines(s string) int {
	if s == "" {
		return 1
	}
	n := bytes.Count([]byte(s), []byte("\n")) + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}
