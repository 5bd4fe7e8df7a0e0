package searcher

import (
	"regexp"
	"strings"
)

// snippet is the result of locating the most relevant window of lines
// within a document's content.
type snippet struct {
	text       string
	offset     int
	lineCount  int
}

// snippetForTerms locates the first line containing any of terms
// (case-insensitive, whitespace-split match against the line), then
// returns a window of up to maxLines lines starting two lines above that
// match (clamped to the first line). If no line matches, the first maxLines lines are returned with
// a zero offset.
func snippetForTerms(content string, terms []string, maxLines int) snippet {
	lines := strings.Split(content, "\n")
	lowerTerms := make([]string, len(terms))
	for i, t := range terms {
		lowerTerms[i] = strings.ToLower(t)
	}

	match := -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, t := range lowerTerms {
			if t != "" && strings.Contains(lower, t) {
				match = i
				break
			}
		}
		if match >= 0 {
			break
		}
	}

	return windowAround(lines, match, maxLines)
}

// snippetForRegex is snippetForTerms's regex-search counterpart: the
// matching criterion is re.MatchString(line) instead of substring
// containment.
func snippetForRegex(content string, re *regexp.Regexp, maxLines int) snippet {
	lines := strings.Split(content, "\n")

	match := -1
	for i, line := range lines {
		if re.MatchString(line) {
			match = i
			break
		}
	}

	return windowAround(lines, match, maxLines)
}

func windowAround(lines []string, match, maxLines int) snippet {
	n := len(lines)
	if match < 0 {
		end := maxLines
		if end > n {
			end = n
		}
		return snippet{
			text:      strings.Join(lines[:end], "\n"),
			offset:    0,
			lineCount: end,
		}
	}

	start := match - 2
	if start < 0 {
		start = 0
	}
	end := start + maxLines
	if end > n {
		end = n
	}
	return snippet{
		text:      strings.Join(lines[start:end], "\n"),
		offset:    start,
		lineCount: end - start,
	}
}
