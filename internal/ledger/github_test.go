package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeContentsAPI is a minimal GitHub contents endpoint: one file, one
// sha, sha precondition on update.
type fakeContentsAPI struct {
	content []byte
	sha     string
	gen     int
}

func (f *fakeContentsAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if f.content == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sha":     f.sha,
				"content": base64.StdEncoding.EncodeToString(f.content),
			})
		case http.MethodPut:
			var body struct {
				Content string `json:"content"`
				SHA     string `json:"sha"`
				Branch  string `json:"branch"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			switch {
			case body.SHA == "" && f.content != nil:
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			case body.SHA != "" && body.SHA != f.sha:
				w.WriteHeader(http.StatusConflict)
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(body.Content)
			require.NoError(t, err)
			f.content = decoded
			f.gen++
			f.sha = fmt.Sprintf("sha-%d", f.gen)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]string{"sha": f.sha},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newGitHubStoreForTest(t *testing.T, api *fakeContentsAPI) *GitHubStore {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	store, err := NewGitHubStore(GitHubConfig{
		Repo:   "owner/ledger",
		Token:  "test-token",
		APIURL: srv.URL,
	})
	require.NoError(t, err)
	return store
}

func TestGitHubStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newGitHubStoreForTest(t, &fakeContentsAPI{})

	_, _, err := store.Get(context.Background(), "day.json")
	require.ErrorIs(t, err, ErrNotFound)

	rev, err := store.Put(context.Background(), "day.json", []byte(`[{"x":1}]`), "")
	require.NoError(t, err)
	require.NotEmpty(t, rev)

	data, gotRev, err := store.Get(context.Background(), "day.json")
	require.NoError(t, err)
	require.Equal(t, rev, gotRev)
	require.JSONEq(t, `[{"x":1}]`, string(data))
}

func TestGitHubStoreStaleRevisionRejected(t *testing.T) {
	t.Parallel()

	store := newGitHubStoreForTest(t, &fakeContentsAPI{})

	rev, err := store.Put(context.Background(), "day.json", []byte("[]"), "")
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "day.json", []byte("[1]"), rev)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "day.json", []byte("[2]"), rev)
	require.ErrorIs(t, err, ErrRevisionMismatch)
}

func TestGitHubStoreCreateOfExistingIsConflict(t *testing.T) {
	t.Parallel()

	store := newGitHubStoreForTest(t, &fakeContentsAPI{})

	_, err := store.Put(context.Background(), "day.json", []byte("[]"), "")
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "day.json", []byte("[]"), "")
	require.ErrorIs(t, err, ErrRevisionMismatch)
}

func TestNewGitHubStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewGitHubStore(GitHubConfig{Repo: "no-slash", Token: "t"})
	require.Error(t, err)
	_, err = NewGitHubStore(GitHubConfig{Repo: "a/b"})
	require.Error(t, err)
}
