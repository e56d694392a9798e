package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPageRendersHotkeys(t *testing.T) {
	page := NewPage(PageData{RecordHotkey: "F9", AutoHotkey: "F10", DefaultInterval: "10s"})

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<kbd>F9</kbd>", "<kbd>F10</kbd>", "every 10s", `value="10s"`, "/ws"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestPageEscapesToken(t *testing.T) {
	page := NewPage(PageData{Token: `a"</script>`})

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if strings.Contains(rec.Body.String(), `a"</script>`) {
		t.Error("Expected token to be escaped inside the script")
	}
}

func TestPageUnknownPath(t *testing.T) {
	page := NewPage(PageData{})

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest("GET", "/favicon.ico", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
