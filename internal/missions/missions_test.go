package missions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchParsesTaggedIssues(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "open", r.URL.Query().Get("state"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"title":"[reddit] wallstreetbets","body":"nvda, tsla , "},
			{"title":"[Reddit] stocks","body":""},
			{"title":"deploy checklist","body":"unrelated"},
			{"title":"[reddit]  ","body":"orphaned"}
		]`))
	}))
	defer srv.Close()

	src, err := NewSource(Config{Repo: "owner/command", Token: "tok", APIURL: srv.URL})
	require.NoError(t, err)

	got, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, Mission{Forum: "wallstreetbets", Keywords: []string{"nvda", "tsla"}}, got[0])
	require.Equal(t, Mission{Forum: "stocks"}, got[1])
}

func TestFetchErrorsOnBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewSource(Config{Repo: "owner/command", APIURL: srv.URL})
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())
	require.Error(t, err)
}

func TestNewSourceValidatesRepo(t *testing.T) {
	t.Parallel()

	_, err := NewSource(Config{Repo: "nope"})
	require.Error(t, err)
}
