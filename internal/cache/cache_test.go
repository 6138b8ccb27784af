package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var n atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &n
}

func TestCache_SecondCallIsHit(t *testing.T) {
	server, requests := countingServer(t, http.StatusOK, "# Comp-V5\n")
	c := New(server.Client())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, ok := FetchText(ctx, c, server.URL+"/README.md")
		if !ok {
			t.Fatalf("call %d: expected success", i)
		}
		if got != "# Comp-V5\n" {
			t.Errorf("call %d: got %q", i, got)
		}
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Fetches != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCache_FailureIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("changelog"))
	}))
	defer server.Close()

	c := New(server.Client())
	ctx := context.Background()
	url := server.URL + "/changelog.md"

	v, ok := c.Fetch(ctx, url, Text)
	if ok || v != nil {
		t.Fatalf("Fetch = (%v, %v), want (nil, false)", v, ok)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d after failure, want 0", c.Len())
	}

	fail.Store(false)
	got, ok := FetchText(ctx, c, url)
	if !ok || got != "changelog" {
		t.Fatalf("retry = (%q, %v)", got, ok)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
	if f := c.GetStats().Failures; f != 1 {
		t.Errorf("Failures = %d, want 1", f)
	}
}

func TestCache_TransportError(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, "x")
	url := server.URL
	server.Close()

	c := New(&http.Client{Timeout: time.Second})
	if _, ok := c.Fetch(context.Background(), url, Text); ok {
		t.Fatal("expected failure against closed server")
	}
}

func TestCache_PanickingDecoderIsAFailure(t *testing.T) {
	server, requests := countingServer(t, http.StatusOK, "x")
	c := New(server.Client())
	bad := func(*http.Response) (any, error) { panic("bad decoder") }

	if v, ok := c.Fetch(context.Background(), server.URL, bad); ok || v != nil {
		t.Fatalf("Fetch = (%v, %v), want (nil, false)", v, ok)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if f := c.GetStats().Failures; f != 1 {
		t.Errorf("Failures = %d, want 1", f)
	}

	// The cache keeps working and retries the URL.
	if got, ok := FetchText(context.Background(), c, server.URL); !ok || got != "x" {
		t.Errorf("FetchText = (%q, %v), want (\"x\", true)", got, ok)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestCache_ConcurrentMissesShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		w.Write([]byte("readme"))
	}))
	defer server.Close()

	c := New(server.Client())
	url := server.URL + "/README.md"

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = FetchText(context.Background(), c, url)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
	for i, r := range results {
		if r != "readme" {
			t.Errorf("results[%d] = %q", i, r)
		}
	}
}

func TestCache_CallerCancelDoesNotPoisonFlight(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("late"))
	}))
	defer server.Close()
	defer close(release)

	c := New(server.Client())
	url := server.URL + "/slow"

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := c.Fetch(ctx, url, Text); ok {
		t.Fatal("expected sentinel after caller deadline")
	}

	done := make(chan string)
	go func() {
		s, _ := FetchText(context.Background(), c, url)
		done <- s
	}()
	release <- struct{}{}

	select {
	case s := <-done:
		if s != "late" {
			t.Errorf("got %q, want %q", s, "late")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never completed")
	}
}

func TestCache_QueryIsPartOfKey(t *testing.T) {
	server, requests := countingServer(t, http.StatusOK, "body")
	c := New(server.Client())
	ctx := context.Background()

	FetchText(ctx, c, server.URL+"/README.md?v=v1.0")
	FetchText(ctx, c, server.URL+"/README.md?v=v1.1")
	FetchText(ctx, c, server.URL+"/README.md?v=v1.0")

	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestCache_Clear(t *testing.T) {
	server, requests := countingServer(t, http.StatusOK, "body")
	c := New(server.Client())
	ctx := context.Background()

	FetchText(ctx, c, server.URL+"/a")
	FetchText(ctx, c, server.URL+"/b")
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if s := c.GetStats(); s != (Stats{}) {
		t.Errorf("stats after Clear = %+v", s)
	}

	FetchText(ctx, c, server.URL+"/a")
	if n := requests.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestCache_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "compsite-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(server.Client(),
		WithHeader("User-Agent", "compsite-test"),
		WithHeader("Accept", "application/vnd.github+json"),
	)
	if _, ok := c.Fetch(context.Background(), server.URL, Bytes); !ok {
		t.Fatal("expected success")
	}
}

type releaseDoc struct {
	TagName string `json:"tag_name"`
}

func TestFetchJSON(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, `{"tag_name":"v2.1.0"}`)
	c := New(server.Client())

	got, ok := FetchJSON[releaseDoc](context.Background(), c, server.URL)
	if !ok {
		t.Fatal("expected success")
	}
	if got.TagName != "v2.1.0" {
		t.Errorf("TagName = %q", got.TagName)
	}

	// Same URL read back as a different type is a failure, not a panic.
	if _, ok := FetchJSON[[]releaseDoc](context.Background(), c, server.URL); ok {
		t.Error("expected type mismatch to fail")
	}
}

func TestFetchJSON_BadBody(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, `not json`)
	c := New(server.Client())

	if _, ok := FetchJSON[releaseDoc](context.Background(), c, server.URL); ok {
		t.Fatal("expected decode failure")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{URL: "https://example.com/x", StatusCode: 503}
	if got := err.Error(); got != "GET https://example.com/x: unexpected status 503" {
		t.Errorf("Error() = %q", got)
	}
}
