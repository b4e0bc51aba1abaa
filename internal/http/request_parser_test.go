package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantAll   bool
		wantStore string
	}{
		{"missing parameter", "", true, ""},
		{"explicit All", "store=All", true, ""},
		{"store name", "store=Brooklyn", false, "Brooklyn"},
		{"trimmed", "store=%20Brooklyn%20", false, "Brooklyn"},
		{"control characters dropped", "store=Brook%00lyn%0A", false, "Brooklyn"},
		{"only whitespace", "store=%20%20", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			f := ParseFilter(q)
			if f.IsAll() != tt.wantAll {
				t.Fatalf("IsAll() = %v, want %v", f.IsAll(), tt.wantAll)
			}
			if name, _ := f.Store(); name != tt.wantStore {
				t.Errorf("Store() = %q, want %q", name, tt.wantStore)
			}
		})
	}
}

func TestParseFilter_TruncatesLongNames(t *testing.T) {
	long := strings.Repeat("é", maxStoreNameLen)
	f := ParseFilter(url.Values{"store": {long}})
	name, ok := f.Store()
	if !ok {
		t.Fatal("expected single store filter")
	}
	if len(name) > maxStoreNameLen {
		t.Errorf("len = %d, want <= %d", len(name), maxStoreNameLen)
	}
	if !strings.HasPrefix(long, name) {
		t.Error("truncation must keep a valid prefix")
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"store": "Brooklyn", "format": "json", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if store := parser.Get("store"); store != "Brooklyn" {
		t.Errorf("Get('store') = %q, want 'Brooklyn'", store)
	}

	if format := parser.Get("format"); format != "json" {
		t.Errorf("Get('format') = %q, want 'json'", format)
	}

	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "store=San+Francisco&format=xlsx"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	if store := parser.Get("store"); store != "San Francisco" {
		t.Errorf("Get('store') = %q, want 'San Francisco'", store)
	}

	if format := parser.Get("format"); format != "xlsx" {
		t.Errorf("Get('format') = %q, want 'xlsx'", format)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"HEAD allowed with multiple", http.MethodHead, []string{http.MethodGet, http.MethodHead}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOST(t *testing.T) {
	postReq := httptest.NewRequest(http.MethodPost, "/test", nil)
	if result := RequirePOST(postReq); result != nil {
		t.Error("RequirePOST should allow POST requests")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	if result := RequirePOST(getReq); result == nil {
		t.Error("RequirePOST should reject GET requests")
	}
}

func TestRequireGET(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodHead} {
		if result := RequireGET(httptest.NewRequest(m, "/", nil)); result != nil {
			t.Errorf("RequireGET should allow %s", m)
		}
	}

	w := httptest.NewRecorder()
	result := RequireGET(httptest.NewRequest(http.MethodPost, "/", nil))
	if result == nil {
		t.Fatal("RequireGET should reject POST")
	}
	result.Write(w)
	if w.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/snapshots", strings.NewReader(`{"store":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("expected parse error for truncated JSON")
	}
}

func TestIsHTMX(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil)
	if isHTMX(req) {
		t.Error("plain request detected as htmx")
	}
	req.Header.Set("HX-Request", "true")
	if !isHTMX(req) {
		t.Error("htmx request not detected")
	}
}
