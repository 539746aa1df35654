package awr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(Config{
		Token:   "tok-test",
		BaseURL: server.URL,
		Limit:   2000,
		Timeout: 5 * time.Second,
	}, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestListProjects_Success(t *testing.T) {
	projects := []map[string]any{
		{"id": "1", "name": "Acme", "keywords": float64(12)},
		{"id": "2", "name": "Globex"},
	}
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "projects", r.URL.Query().Get("action"))
		assert.Equal(t, "tok-test", r.URL.Query().Get("token"))
		writeJSON(t, w, map[string]any{"projects": projects})
	})

	env := client.ListProjects(context.Background())
	require.True(t, env.OK)
	require.Empty(t, env.Error)
	require.Len(t, env.Projects, 2)
	// Ordering and content are preserved exactly.
	assert.Equal(t, "Acme", env.Projects[0].Name())
	assert.Equal(t, "Globex", env.Projects[1].Name())
	assert.Equal(t, float64(12), env.Projects[0]["keywords"])
}

func TestListProjects_AliasedKey(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"ProjectList": []map[string]any{{"id": 7, "name": "Initech"}},
		})
	})

	env := client.ListProjects(context.Background())
	require.True(t, env.OK)
	require.Len(t, env.Projects, 1)
	assert.Equal(t, "Initech", env.Projects[0].Name())
}

func TestListProjects_HTTP500(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	env := client.ListProjects(context.Background())
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "500")
	// Error envelopes still carry an empty, rangeable project list.
	require.NotNil(t, env.Projects)
	assert.Len(t, env.Projects, 0)
}

func TestListProjects_InvalidJSON(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	})

	env := client.ListProjects(context.Background())
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "decoding response")
}

func TestListProjects_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Config{Token: "t", BaseURL: url, Timeout: time.Second}, zerolog.Nop())
	env := client.ListProjects(context.Background())
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)
}

func TestListProjects_ProviderCode(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"response_code": 3, "message": "quota exceeded"})
	})

	env := client.ListProjects(context.Background())
	assert.False(t, env.OK)
	assert.Equal(t, "quota exceeded (code 3)", env.Error)
}

func TestListProjects_CodeBeatsProjectsArray(t *testing.T) {
	// When both an error code and a valid-looking list are present, the
	// code wins.
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"response_code": 11,
			"projects":      []map[string]any{{"id": "1", "name": "Acme"}},
		})
	})

	env := client.ListProjects(context.Background())
	assert.False(t, env.OK)
	assert.Equal(t, "the API token is invalid", env.Error)
}

func TestListProjects_UnrecognizedShape(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": "ok", "count": 0})
	})

	env := client.ListProjects(context.Background())
	assert.True(t, env.OK)
	assert.Empty(t, env.Error)
	assert.NotEmpty(t, env.Warning)
	assert.Equal(t, "ok", env.Raw["status"])
	assert.Empty(t, env.Projects)
}

func TestListProjects_Idempotent(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"projects": []map[string]any{{"id": "1", "name": "Acme"}},
		})
	})

	first := client.ListProjects(context.Background())
	second := client.ListProjects(context.Background())

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// detailsHandler serves both actions: a fixed project list and a details
// payload for the named project.
func detailsHandler(t *testing.T, details map[string]any, detailsCalled *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{
					{"id": "42", "name": "Acme", "keywords": float64(10), "searches": "weekly"},
					{"id": float64(43), "name": "Globex"},
				},
			})
		case "details":
			if detailsCalled != nil {
				*detailsCalled = true
			}
			assert.Equal(t, "Acme", r.URL.Query().Get("project"))
			writeJSON(t, w, details)
		default:
			t.Errorf("unexpected action %q", r.URL.Query().Get("action"))
		}
	}
}

func TestProjectDetails_Success(t *testing.T) {
	details := map[string]any{
		"websites":      []any{map[string]any{"url": "acme.test"}},
		"keywords":      []any{"anvils"},
		"searchengines": []any{"google"},
		"locations":     []any{"us"},
	}
	client := setupTestClient(t, detailsHandler(t, details, nil))

	env := client.ProjectDetails(context.Background(), "42")
	require.True(t, env.OK, "error: %s", env.Error)
	require.NotNil(t, env.Project)

	assert.Equal(t, "42", env.Project["id"])
	assert.Equal(t, "Acme", env.Project["name"])
	// Remaining summary fields ride along.
	assert.Equal(t, float64(10), env.Project["keywords"])
	assert.Equal(t, "weekly", env.Project["searches"])

	nested, ok := env.Project["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, nested, "websites")
	assert.Contains(t, nested, "searchengines")
}

func TestProjectDetails_SummaryNeverOverwritesIDName(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			// Numeric id: the merged result must still carry the
			// normalized string form.
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": float64(42), "name": "Acme"}},
			})
		case "details":
			writeJSON(t, w, map[string]any{"websites": []any{}})
		}
	})

	env := client.ProjectDetails(context.Background(), "42")
	require.True(t, env.OK)
	assert.Equal(t, "42", env.Project["id"])
	assert.Equal(t, "Acme", env.Project["name"])
}

func TestProjectDetails_NumericAndStringIDsMatch(t *testing.T) {
	// Provider stores id as string "42"; numeric id float64(43) also present.
	client := setupTestClient(t, detailsHandler(t, map[string]any{}, nil))

	env := client.ProjectDetails(context.Background(), "42")
	require.True(t, env.OK)
	assert.Equal(t, "Acme", env.Project["name"])
}

func TestProjectDetails_NumericProviderID(t *testing.T) {
	called := false
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": float64(43), "name": "Globex"}},
			})
		case "details":
			called = true
			assert.Equal(t, "Globex", r.URL.Query().Get("project"))
			writeJSON(t, w, map[string]any{})
		}
	})

	env := client.ProjectDetails(context.Background(), "43")
	require.True(t, env.OK)
	assert.True(t, called)
	assert.Equal(t, "43", env.Project["id"])
}

func TestProjectDetails_LookupMiss(t *testing.T) {
	detailsCalled := false
	client := setupTestClient(t, detailsHandler(t, map[string]any{}, &detailsCalled))

	env := client.ProjectDetails(context.Background(), "999")
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "999")
	assert.Contains(t, env.Error, "not found")
	// The details endpoint is never reached on a lookup miss.
	assert.False(t, detailsCalled)
}

func TestProjectDetails_MalformedID(t *testing.T) {
	detailsCalled := false
	client := setupTestClient(t, detailsHandler(t, map[string]any{}, &detailsCalled))

	env := client.ProjectDetails(context.Background(), "not-a-number")
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "not-a-number")
	assert.False(t, detailsCalled)
}

func TestProjectDetails_ListFailurePropagates(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	env := client.ProjectDetails(context.Background(), "42")
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "502")
}

func TestProjectDetails_InvalidToken(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": "42", "name": "Acme"}},
			})
		case "details":
			writeJSON(t, w, map[string]any{"response_code": 11, "message": "bad token"})
		}
	})

	env := client.ProjectDetails(context.Background(), "42")
	assert.False(t, env.OK)
	assert.Equal(t, "the API token is invalid", env.Error)
}

func TestProjectDetails_ProjectGone(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": "42", "name": "Acme"}},
			})
		case "details":
			writeJSON(t, w, map[string]any{"response_code": 15})
		}
	})

	env := client.ProjectDetails(context.Background(), "42")
	assert.False(t, env.OK)
	assert.Equal(t, "the project you specified does not exist", env.Error)
}

func TestProjectDetails_OtherProviderCode(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": "42", "name": "Acme"}},
			})
		case "details":
			writeJSON(t, w, map[string]any{"response_code": 7, "message": "maintenance window"})
		}
	})

	env := client.ProjectDetails(context.Background(), "42")
	assert.False(t, env.OK)
	assert.Equal(t, "maintenance window (code 7)", env.Error)
}

func TestProjectDetails_NameIsURLEncoded(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": "1", "name": "Acme & Sons / EU"}},
			})
		case "details":
			// Query() decodes, so a safe round trip proves the name
			// was escaped on the wire.
			assert.Equal(t, "Acme & Sons / EU", r.URL.Query().Get("project"))
			writeJSON(t, w, map[string]any{})
		}
	})

	env := client.ProjectDetails(context.Background(), "1")
	require.True(t, env.OK)
}

func TestProjectDetails_ZeroCodeIsSuccess(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "projects":
			writeJSON(t, w, map[string]any{
				"projects": []map[string]any{{"id": "42", "name": "Acme"}},
			})
		case "details":
			writeJSON(t, w, map[string]any{"response_code": 0, "websites": []any{}})
		}
	})

	env := client.ProjectDetails(context.Background(), "42")
	require.True(t, env.OK)
	assert.Equal(t, "Acme", env.Project["name"])
}

func TestClient_ContextCancellation(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(t, w, map[string]any{"projects": []map[string]any{}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	env := client.ListProjects(ctx)
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)
}
