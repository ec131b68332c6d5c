package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := map[string]interface{}{
		"iid":        12,
		"title":      "Add retry logic",
		"web_url":    "https://gitlab.example.com/acme/widgets/-/merge_requests/12",
		"created_at": "2026-08-20T10:00:00Z",
		"author":     map[string]string{"username": "dev1"},
	}

	// Project IDs arrive URL-encoded, so routing goes by the escaped path
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("PRIVATE-TOKEN"))

		switch r.URL.EscapedPath() {
		case "/api/v4/projects/acme%2Fwidgets/merge_requests":
			assert.Equal(t, "opened", r.URL.Query().Get("state"))
			json.NewEncoder(w).Encode([]map[string]interface{}{mr})
		case "/api/v4/projects/acme%2Fwidgets/merge_requests/12":
			json.NewEncoder(w).Encode(mr)
		case "/api/v4/projects/acme%2Fwidgets/merge_requests/12/diffs":
			assert.Equal(t, "inline", r.URL.Query().Get("view"))
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"diff":     "@@ -1,2 +1,3 @@\n package main\n+// retry\n func main() {}\n",
					"old_path": "main.go",
					"new_path": "main.go",
				},
				{
					"diff":     "@@ -0,0 +1,2 @@\n+package retry\n+// new file\n",
					"new_path": "retry.go",
					"new_file": true,
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func testSource(t *testing.T, baseURL string) *Source {
	t.Helper()
	source, err := New(Config{
		Repository: "acme/widgets",
		Token:      "secret-token",
		BaseURL:    baseURL,
	})
	require.NoError(t, err)
	return source
}

func TestOpenChangeSets(t *testing.T) {
	server := newTestServer(t)
	source := testSource(t, server.URL)

	sets, err := source.OpenChangeSets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)

	cs := sets[0]
	assert.Equal(t, "12", cs.ID)
	assert.Equal(t, "Add retry logic", cs.Title)
	assert.Equal(t, "dev1", cs.Author)
	assert.Contains(t, cs.DiffText, "diff --git a/main.go b/main.go")
	assert.Contains(t, cs.DiffText, "+// retry")
	assert.Contains(t, cs.DiffText, "--- /dev/null\n+++ b/retry.go")
}

func TestChangeSetByID(t *testing.T) {
	server := newTestServer(t)
	source := testSource(t, server.URL)

	cs, err := source.ChangeSet(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "12", cs.ID)
	assert.NotEmpty(t, cs.DiffText)
}

func TestChangeSetBadID(t *testing.T) {
	source := testSource(t, "https://gitlab.example.com")

	_, err := source.ChangeSet(context.Background(), "not-a-number")
	assert.Error(t, err)
}

func TestAPIErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	source := testSource(t, server.URL)

	_, err := source.OpenChangeSets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
