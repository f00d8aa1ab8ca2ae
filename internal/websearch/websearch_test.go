package websearch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpAPIClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "深圳 产业发展 政策", q.Get("q"))
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "zh-cn", q.Get("hl"))
		assert.Equal(t, "cn", q.Get("gl"))
		_, _ = w.Write([]byte(`{"organic_results":[{"title":"政策A","link":"https://a","snippet":"摘要A"},{"title":"政策B","link":"https://b","snippet":"摘要B"}]}`))
	}))
	defer srv.Close()

	c := NewSerpAPIClient("key", "").WithEndpoint(srv.URL)
	got, err := c.Search(context.Background(), "深圳 产业发展 政策")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Result{Title: "政策A", Link: "https://a", Snippet: "摘要A"}, got[0])
}

func TestSerpAPIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad-key" {
			_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSerpAPIClient("key", "bing").WithEndpoint(srv.URL)
	_, err := c.Search(context.Background(), "bad-key")
	assert.ErrorContains(t, err, "Invalid API key")
	_, err = c.Search(context.Background(), "x")
	assert.ErrorContains(t, err, "429")
}

func TestSerpAPIClient_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/search"
	srv.Close()

	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	c := NewSerpAPIClient("serp-secret-7f3a", "").WithEndpoint(endpoint)

	_, err := c.Search(context.Background(), "景德镇 陶瓷")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "serp-secret-7f3a")
	assert.Contains(t, err.Error(), "serpapi request")

	got := NewAugmenter(c, log).Augment(context.Background(), "景德镇市", "陶瓷产业")
	assert.Empty(t, got.Text)
	assert.Contains(t, logs.String(), "web search failed")
	assert.NotContains(t, logs.String(), "serp-secret-7f3a")
}

func TestSerpAPIClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSerpAPIClient("k", "").WithEndpoint(srv.URL).Search(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]Result
	fail    map[string]bool
	seen    []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, query)
	f.mu.Unlock()
	if f.fail[query] {
		return nil, errors.New("boom")
	}
	return f.results[query], nil
}

func hits(prefix string, n int) []Result {
	out := make([]Result, n)
	for i := range out {
		s := prefix + string(rune('a'+i))
		out[i] = Result{Title: s, Link: "https://" + s, Snippet: "snip " + s}
	}
	return out
}

func TestAugment_FormatsInQueryOrder(t *testing.T) {
	qs := Queries("深圳", "数字经济")
	f := &fakeSearcher{
		results: map[string][]Result{
			qs[0]: hits("p", 5),
			qs[2]: hits("n", 1),
			qs[3]: hits("d", 2),
		},
		fail: map[string]bool{qs[3]: true},
	}
	got := NewAugmenter(f, nil).Augment(context.Background(), "深圳", "数字经济")

	assert.Len(t, f.seen, 4)
	want := "\n\n## 深圳 数字经济 发展规划 搜索结果:\n" +
		"1. pa\nsnip pa\n来源: https://pa\n\n" +
		"2. pb\nsnip pb\n来源: https://pb\n\n" +
		"3. pc\nsnip pc\n来源: https://pc\n\n" +
		"\n\n## 数字经济 国家政策 指导意见 搜索结果:\n" +
		"1. na\nsnip na\n来源: https://na\n\n"
	assert.Equal(t, want, got.Text)
	assert.Equal(t, []string{"pa", "pb", "pc", "na"}, got.Sources)
}

func TestAugment_AllFailuresYieldEmpty(t *testing.T) {
	qs := Queries("r", "t")
	fail := map[string]bool{}
	for _, q := range qs {
		fail[q] = true
	}
	got := NewAugmenter(&fakeSearcher{fail: fail}, nil).Augment(context.Background(), "r", "t")
	assert.Empty(t, got.Text)
	assert.Empty(t, got.Sources)
}

func TestQueries(t *testing.T) {
	qs := Queries("成都市", "十五五")
	require.Len(t, qs, 4)
	assert.Equal(t, "成都市 十五五 发展规划", qs[0])
	assert.True(t, strings.HasPrefix(qs[2], "十五五 "))
}
