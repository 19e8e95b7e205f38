package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/mikequentel/sutraparser/internal/store"
)

// ===================== envOr =====================

func TestEnvOr(t *testing.T) {
	const key = "TEST_ENVVAR_SUTRA_XYZ"

	os.Unsetenv(key)
	if got := envOr(key, "default_val"); got != "default_val" {
		t.Errorf("envOr unset = %q, want %q", got, "default_val")
	}

	t.Setenv(key, "custom")
	if got := envOr(key, "default_val"); got != "custom" {
		t.Errorf("envOr set = %q, want %q", got, "custom")
	}
}

// ===================== requireEnv =====================

func TestRequireEnv(t *testing.T) {
	err := requireEnv(map[string]string{"B": "", "A": "", "C": "set"})
	if err == nil {
		t.Fatal("expected error for missing vars")
	}
	if !strings.Contains(err.Error(), "A, B") {
		t.Errorf("expected sorted missing vars, got: %v", err)
	}
	if err := requireEnv(map[string]string{"A": "x"}); err != nil {
		t.Errorf("requireEnv(all set) = %v", err)
	}
}

// ===================== runeLen / truncateRunes =====================

func TestRuneLen(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"hello", 5},
		{"心经", 2},
		{"《心经》", 4},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := runeLen(tt.input); got != tt.want {
				t.Errorf("runeLen(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"empty", "", 5, ""},
		{"no truncation needed", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncate multibyte", "观自在菩萨行深般若", 3, "观自在"},
		{"zero length", "hello", 0, ""},
		{"negative", "hello", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.s, tt.n); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}

// ===================== formatStatus =====================

func TestFormatStatus_Short(t *testing.T) {
	p := &store.Passage{BookTitle: "般若波罗蜜多心经", JuanName: "全一卷", Text: " 观自在菩萨 "}
	status := formatStatus(p)

	if !strings.HasPrefix(status, "《般若波罗蜜多心经》全一卷: 观自在菩萨 ") {
		t.Errorf("unexpected header/body, got: %s", status)
	}
	if !strings.HasSuffix(status, attribution+" "+hashtags) {
		t.Errorf("expected attribution and hashtags, got: %s", status)
	}
}

func TestFormatStatus_ChapterLocation(t *testing.T) {
	p := &store.Passage{BookTitle: "大般若经", JuanName: "第一卷", ChapterName: "缘起品", Text: "如是我闻"}
	if status := formatStatus(p); !strings.HasPrefix(status, "《大般若经》第一卷·缘起品: ") {
		t.Errorf("unexpected location, got: %s", status)
	}
}

func TestFormatStatus_Truncation(t *testing.T) {
	p := &store.Passage{BookTitle: "大般若经", Text: strings.Repeat("般若", 300)}
	status := formatStatus(p)

	if runeLen(status) != maxLen {
		t.Errorf("status runes = %d, want %d", runeLen(status), maxLen)
	}
	if !strings.Contains(status, ellipsis) {
		t.Errorf("expected ellipsis in truncated status, got: %s", status)
	}
	if !strings.HasPrefix(status, "《大般若经》: ") {
		t.Errorf("expected header kept, got: %s", status)
	}
}

func TestFormatStatus_ExactlyMaxLen(t *testing.T) {
	header := "《经》: "
	tail := " " + attribution + " " + hashtags
	body := strings.Repeat("a", maxLen-runeLen(header)-runeLen(tail))

	status := formatStatus(&store.Passage{BookTitle: "经", Text: body})
	if runeLen(status) != maxLen {
		t.Errorf("expected exactly %d runes, got %d", maxLen, runeLen(status))
	}
	if strings.Contains(status, ellipsis) {
		t.Errorf("should not contain ellipsis when body fits exactly")
	}
}

func TestFormatStatus_LongHeader(t *testing.T) {
	title := strings.Repeat("经", 300)
	tests := []struct {
		name string
		p    *store.Passage
	}{
		{"short text", &store.Passage{BookTitle: title, JuanName: "第一卷", ChapterName: "序品", Text: "如是我闻"}},
		{"long text", &store.Passage{BookTitle: title, JuanName: "第一卷", Text: strings.Repeat("般若", 200)}},
		{"long juan name", &store.Passage{BookTitle: "心经", JuanName: strings.Repeat("卷", 300), Text: "观自在菩萨"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := formatStatus(tt.p)
			if runeLen(status) > maxLen {
				t.Errorf("status runes = %d, want <= %d", runeLen(status), maxLen)
			}
			if !strings.HasPrefix(status, "《") {
				t.Errorf("expected header start kept, got: %s", status)
			}
			if !strings.HasSuffix(status, attribution+" "+hashtags) {
				t.Errorf("expected tail kept, got: %s", status)
			}
		})
	}

	status := formatStatus(tests[0].p)
	if !strings.Contains(status, ": 如是我闻 ") {
		t.Errorf("short text should survive untruncated, got: %s", status)
	}
}

// ===================== postStatus =====================

func TestPostStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/statuses/update.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("status") != "如是我闻" {
			t.Errorf("unexpected status %q", r.PostForm.Get("status"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 9876543210, "id_str": "9876543210", "text": "如是我闻"}`))
	}))
	defer srv.Close()

	client := newTwitterClient(&http.Client{
		Transport: rewriteTransport{base: http.DefaultTransport, target: srv.URL},
	})

	id, err := postStatus(client, "如是我闻")
	if err != nil {
		t.Fatal(err)
	}
	if id != "9876543210" {
		t.Errorf("expected id 9876543210, got %s", id)
	}
}

func TestPostStatus_NumericFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	client := newTwitterClient(&http.Client{
		Transport: rewriteTransport{base: http.DefaultTransport, target: srv.URL},
	})

	id, err := postStatus(client, "x")
	if err != nil {
		t.Fatal(err)
	}
	if id != "42" {
		t.Errorf("expected fallback to numeric id, got %s", id)
	}
}

func TestPostStatus_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":187,"message":"Status is a duplicate."}]}`))
	}))
	defer srv.Close()

	client := newTwitterClient(&http.Client{
		Transport: rewriteTransport{base: http.DefaultTransport, target: srv.URL},
	})

	if _, err := postStatus(client, "dup"); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

// ===================== rewriteTransport =====================

// rewriteTransport redirects all HTTP requests to a local httptest server,
// allowing us to test functions that use hardcoded external URLs.
type rewriteTransport struct {
	base   http.RoundTripper
	target string // e.g., "http://127.0.0.1:PORT"
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(rt.target, "http://")
	return rt.base.RoundTrip(req)
}
