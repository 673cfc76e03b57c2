package kiwoom

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  settings.BaseURL
		live bool
		want string
	}{
		{
			name: "paper host selected when not live",
			cfg:  settings.BaseURL{Hosts: map[string]string{"live": "https://api.x", "paper": "https://mock.x"}},
			live: false,
			want: "https://mock.x",
		},
		{
			name: "live host selected when live",
			cfg:  settings.BaseURL{Hosts: map[string]string{"live": "https://api.x", "paper": "https://mock.x"}},
			live: true,
			want: "https://api.x",
		},
		{
			name: "missing env key falls back within table",
			cfg:  settings.BaseURL{Hosts: map[string]string{"live": "https://api.x"}},
			live: false,
			want: "https://api.x",
		},
		{
			name: "flat string used when table empty",
			cfg:  settings.BaseURL{Flat: "https://flat.x"},
			live: false,
			want: "https://flat.x",
		},
		{
			name: "hardcoded paper default",
			cfg:  settings.BaseURL{},
			live: false,
			want: defaultPaperBaseURL,
		},
		{
			name: "hardcoded live default",
			cfg:  settings.BaseURL{},
			live: true,
			want: defaultLiveBaseURL,
		},
		{
			name: "trailing slash trimmed",
			cfg:  settings.BaseURL{Hosts: map[string]string{"paper": "https://mock.x/"}},
			live: false,
			want: "https://mock.x",
		},
		{
			name: "blank entries skipped",
			cfg:  settings.BaseURL{Hosts: map[string]string{"paper": "   "}, Flat: "https://flat.x"},
			live: false,
			want: "https://flat.x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveBaseURL(tt.cfg, tt.live)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHeaders(t *testing.T) {
	headers := normalizeHeaders(map[string]string{
		"content_type": "application/json",
		" tr_id ":      "FHKST03010200",
		"":             "dropped",
	})

	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, "FHKST03010200", headers["tr_id"])
	assert.NotContains(t, headers, "")
	assert.NotContains(t, headers, "content_type")
}

func TestNormalizeHeaders_InjectsDefaultContentType(t *testing.T) {
	headers := normalizeHeaders(nil)
	assert.Equal(t, defaultContentType, headers["Content-Type"])

	headers = normalizeHeaders(map[string]string{"Content type": "text/plain"})
	assert.Equal(t, "text/plain", headers["Content-Type"])
	assert.Len(t, headers, 1)
}

func TestIsContentTypeKey(t *testing.T) {
	assert.True(t, isContentTypeKey("Content-Type"))
	assert.True(t, isContentTypeKey("content_type"))
	assert.True(t, isContentTypeKey("CONTENT TYPE"))
	assert.False(t, isContentTypeKey("content-length"))
}

func TestHeaderValue(t *testing.T) {
	h := http.Header{}
	h.Set("cont-yn", "Y")
	assert.Equal(t, "Y", headerValue(h, "Cont-Yn"))

	// Non-canonical key set directly on the map still resolves.
	h2 := http.Header{"NEXT-KEY": []string{"abc"}}
	assert.Equal(t, "abc", headerValue(h2, "next-key"))

	assert.Empty(t, headerValue(h, "absent"))
}
