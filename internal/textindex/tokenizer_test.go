package textindex

import "testing"

func assertTokens(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSplitCamelCase(t *testing.T) {
	assertTokens(t, SplitCamelCase("getUserById"), []string{"get", "User", "By", "Id"})
	assertTokens(t, SplitCamelCase("HTTPHandler"), []string{"HTTP", "Handler"})
	assertTokens(t, SplitCamelCase("parseHTTPRequest"), []string{"parse", "HTTP", "Request"})
	assertTokens(t, SplitCamelCase(""), []string{})
}

func TestSplitCodeTokenHandlesSnakeCase(t *testing.T) {
	assertTokens(t, SplitCodeToken("get_user_id"), []string{"get", "user", "id"})
	assertTokens(t, SplitCodeToken("parseHTTP_request"), []string{"parse", "HTTP", "request"})
}

func TestTokenizeCodeFiltersShortTokens(t *testing.T) {
	tokens := TokenizeCode("a ab getUserById")
	assertTokens(t, tokens, []string{"ab", "get", "user", "by", "id"})
}

func TestTokenizeCodeLowercases(t *testing.T) {
	tokens := TokenizeCode("HTTPClient")
	assertTokens(t, tokens, []string{"http", "client"})
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"Func", "Return"})
	if _, ok := m["func"]; !ok {
		t.Fatal("expected lowercase key in stop word map")
	}
}

func TestFilterStopWords(t *testing.T) {
	m := BuildStopWordMap([]string{"func"})
	out := FilterStopWords([]string{"func", "handler"}, m)
	assertTokens(t, out, []string{"handler"})
}
