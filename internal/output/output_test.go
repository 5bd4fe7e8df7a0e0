package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusWithIconPrefixesLine(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Status("»", "building index")
	assert.Equal(t, "» building index\n", buf.String())
}

func TestStatusWithoutIconIndents(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Status("", "plain line")
	assert.Equal(t, "   plain line\n", buf.String())
}

func TestSuccessfFormatsAndIcons(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Successf("indexed %d files", 12)
	assert.Equal(t, "✅ indexed 12 files\n", buf.String())
}

func TestWarningfFormatsAndIcons(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Warningf("%d files skipped", 3)
	assert.Contains(t, buf.String(), "3 files skipped")
	assert.True(t, strings.HasPrefix(buf.String(), levelIcon[levelWarning]))
}

func TestErrorfFormatsAndIcons(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Errorf("walk failed: %v", "boom")
	assert.True(t, strings.HasPrefix(buf.String(), levelIcon[levelError]))
	assert.Contains(t, buf.String(), "walk failed: boom")
}

func TestSnippetIndentsEachLineWithBlankBorder(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Snippet("func main() {\n\treturn\n}")

	out := buf.String()
	lines := strings.Split(out, "\n")
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "  func main() {", lines[1])
	assert.Equal(t, "  \treturn", lines[2])
	assert.Equal(t, "  }", lines[3])
	assert.Equal(t, "", lines[4])
}

func TestNewlinePrintsBlankLine(t *testing.T) {
	buf := new(bytes.Buffer)
	w := New(buf)
	w.Newline()
	assert.Equal(t, "\n", buf.String())
}
