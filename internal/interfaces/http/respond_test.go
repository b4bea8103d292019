package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramsFor(t *testing.T, query string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/x?"+query, nil)
	return c, w
}

func TestParseListParamsDefaults(t *testing.T) {
	c, _ := paramsFor(t, "")
	p, err := parseListParams(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Page != 1 || p.PerPage != defaultPerPage {
		t.Errorf("defaults = page %d per_page %d", p.Page, p.PerPage)
	}
	if p.Before != nil || p.After != nil {
		t.Error("cursors set without query params")
	}
}

func TestParseListParamsClampsPerPage(t *testing.T) {
	c, _ := paramsFor(t, "page=0&per_page=9999")
	p, err := parseListParams(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Page != 1 {
		t.Errorf("page = %d, want 1", p.Page)
	}
	if p.PerPage != maxPerPage {
		t.Errorf("per_page = %d, want clamped to %d", p.PerPage, maxPerPage)
	}
}

func TestParseListParamsPerPageName(t *testing.T) {
	c, _ := paramsFor(t, "perPage=25")
	p, err := parseListParams(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.PerPage != 25 {
		t.Errorf("perPage = %d, want 25", p.PerPage)
	}

	// Canonical name wins over the legacy fallback.
	c, _ = paramsFor(t, "perPage=25&per_page=7")
	p, err = parseListParams(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.PerPage != 25 {
		t.Errorf("perPage = %d, want 25 over per_page", p.PerPage)
	}
}

func TestParseListParamsCursors(t *testing.T) {
	c, _ := paramsFor(t, "before=2026-08-30T12:00:00Z&after=2026-08-01T00:00:00Z")
	p, err := parseListParams(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Before == nil || p.After == nil {
		t.Fatal("cursors not parsed")
	}
	if !p.After.Before(*p.Before) {
		t.Error("after cursor not before the before cursor")
	}
}

func TestParseListParamsRejectsBadTimestamp(t *testing.T) {
	c, _ := paramsFor(t, "before=yesterday")
	if _, err := parseListParams(c); err == nil {
		t.Fatal("malformed timestamp accepted")
	}
}
