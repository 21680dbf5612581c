package shared

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name       string
		url        string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "/kpis", 20, 0},
		{"explicit", "/kpis?limit=10&offset=30", 10, 30},
		{"capped", "/kpis?limit=500", 100, 0},
		{"page translates to offset", "/kpis?limit=10&page=3", 10, 20},
		{"offset wins over page", "/kpis?limit=10&offset=5&page=3", 10, 5},
		{"garbage falls back", "/kpis?limit=abc&page=-2", 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ParsePagination(httptest.NewRequest("GET", tc.url, nil), 20, 100)
			if p.Limit != tc.wantLimit || p.Offset != tc.wantOffset {
				t.Fatalf("got limit=%d offset=%d, want limit=%d offset=%d",
					p.Limit, p.Offset, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}
