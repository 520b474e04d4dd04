package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Weather</title><style>body { color: red; }</style></head>
<body>
  <script>var tracking = "do not keep";</script>
  <nav>Home   |   News</nav>
  <article>
    <h1>Paris forecast</h1>
    <p>Sunny with a high of 24&deg;C and light   winds.</p>
    <p>Rain is expected on Thursday &amp; Friday.</p>
  </article>
  <noscript>Enable JavaScript</noscript>
</body>
</html>`

// ==========================
// Test Helper Functions
// ==========================

func newTestFetcher(t *testing.T, timeout time.Duration, extractor Extractor) *Fetcher {
	return New(Config{Timeout: timeout, UserAgent: config.DefaultUserAgent}, extractor, logger.NewTestLogger(t))
}

func pageServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// ==========================
// Extractors
// ==========================

func TestTextExtractor(t *testing.T) {
	text, err := TextExtractor{}.Extract(samplePage, nil)
	require.NoError(t, err)

	assert.Equal(t, "Home | News\nParis forecast\nSunny with a high of 24°C and light winds.\nRain is expected on Thursday & Friday.", text)
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Enable JavaScript")
}

func TestTextExtractor_PlainText(t *testing.T) {
	text, err := TextExtractor{}.Extract("just   some\n\n\n text", nil)
	require.NoError(t, err)
	assert.Equal(t, "just some\ntext", text)
}

func TestTextExtractor_OptionalTags(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no closing head tag",
			doc:  "<!DOCTYPE html><html><head><meta charset=utf-8><title>Paris</title><body><p>Sunny and 24C in Paris today.</p></body></html>",
			want: "Sunny and 24C in Paris today.",
		},
		{
			name: "no body tag",
			doc:  "<!DOCTYPE html><title>Paris</title><style>p{}</style><p>Sunny and 24C in Paris today.<p>Windy tomorrow.",
			want: "Sunny and 24C in Paris today.\nWindy tomorrow.",
		},
		{
			name: "unclosed script inside head",
			doc:  "<html><head><script>var x = 1;</script><body><div>Visible</div>",
			want: "Visible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := TextExtractor{}.Extract(tt.doc, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestSanitizeExtractor(t *testing.T) {
	text, err := SanitizeExtractor{}.Extract(samplePage, nil)
	require.NoError(t, err)

	assert.Contains(t, text, "Paris forecast")
	assert.Contains(t, text, "Thursday & Friday")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "<p>")
}

func TestReadabilityExtractor(t *testing.T) {
	text, err := ReadabilityExtractor{}.Extract(samplePage, nil)
	require.NoError(t, err)

	assert.Contains(t, text, "Rain is expected on Thursday")
	assert.NotContains(t, text, "tracking")
}

func TestExtractorByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Extractor
		wantErr bool
	}{
		{name: "", want: TextExtractor{}},
		{name: "text", want: TextExtractor{}},
		{name: "readability", want: ReadabilityExtractor{}},
		{name: "sanitize", want: SanitizeExtractor{}},
		{name: "markdown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("name="+tt.name, func(t *testing.T) {
			got, err := ExtractorByName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ==========================
// Decoding
// ==========================

func TestDecodeBody_UTF8(t *testing.T) {
	doc, err := decodeBody([]byte("<p>Zürich café – naïve</p>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<p>Zürich café – naïve</p>", doc)
}

func TestDecodeBody_Latin1IsConvertedToUTF8(t *testing.T) {
	raw := []byte("<html><body><p>Le caf\xe9 de la gare est ferm\xe9 pour la journ\xe9e, d\xe9sol\xe9.</p></body></html>")
	require.False(t, utf8.Valid(raw))

	doc, err := decodeBody(raw, "text/html")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(doc))
	assert.Contains(t, doc, "Le caf")
}

func TestDecodeBody_Empty(t *testing.T) {
	doc, err := decodeBody(nil, "")
	require.NoError(t, err)
	assert.Empty(t, doc)
}

// ==========================
// Fetcher
// ==========================

func TestFetcher_Fetch_Success(t *testing.T) {
	var userAgent string
	server := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})

	before := testutil.ToFloat64(metrics.PageFetchesTotal.WithLabelValues("ok"))
	text := newTestFetcher(t, time.Second, TextExtractor{}).Fetch(context.Background(), server.URL)

	assert.Contains(t, text, "Sunny with a high of 24°C")
	assert.Equal(t, config.DefaultUserAgent, userAgent)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PageFetchesTotal.WithLabelValues("ok")))
}

func TestFetcher_Fetch_LargePageIsNotTruncated(t *testing.T) {
	filler := strings.Repeat("<p>filler paragraph about the weather</p>", 200000)
	page := "<html><body>" + filler + "<p>Closing line of the report.</p></body></html>"
	require.Greater(t, len(page), 6<<20)

	server := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	text := newTestFetcher(t, 10*time.Second, TextExtractor{}).Fetch(context.Background(), server.URL)
	assert.True(t, strings.HasSuffix(text, "Closing line of the report."))
}

func TestFetcher_Fetch_ReturnsEmptyOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("<p>missing</p>"))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "redirect target fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/gone" {
					w.WriteHeader(http.StatusGone)
					return
				}
				http.Redirect(w, r, "/gone", http.StatusFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := pageServer(t, tt.handler)
			assert.Empty(t, newTestFetcher(t, time.Second, nil).Fetch(context.Background(), server.URL))
		})
	}
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	start := time.Now()
	text := newTestFetcher(t, 50*time.Millisecond, nil).Fetch(context.Background(), server.URL)
	assert.Empty(t, text)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetcher_Fetch_UnreachableAndInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := newTestFetcher(t, time.Second, nil)
	assert.Empty(t, f.Fetch(context.Background(), url))
	assert.Empty(t, f.Fetch(context.Background(), "://not a url"))
	assert.Empty(t, f.Fetch(context.Background(), "ftp://example.invalid/file"))
}

func TestFetcher_Fetch_ConcurrentUse(t *testing.T) {
	var hits int32
	server := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("<p>" + strings.TrimPrefix(r.URL.Path, "/") + "</p>"))
	})

	f := newTestFetcher(t, time.Second, nil)
	results := make([]string, 8)
	done := make(chan int)
	for i := range results {
		go func(i int) {
			results[i] = f.Fetch(context.Background(), server.URL+"/page"+string(rune('a'+i)))
			done <- i
		}(i)
	}
	for range results {
		<-done
	}
	f.Release()

	for i, text := range results {
		assert.Equal(t, "page"+string(rune('a'+i)), text)
	}
	assert.EqualValues(t, 8, atomic.LoadInt32(&hits))
}

func TestNewFromConfig(t *testing.T) {
	f, err := NewFromConfig(config.ResearchConfig{Extractor: "sanitize", FetchTimeout: 1500}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.IsType(t, SanitizeExtractor{}, f.extractor)

	_, err = NewFromConfig(config.ResearchConfig{Extractor: "pdf"}, logger.NewNoOpLogger())
	assert.Error(t, err)
}
