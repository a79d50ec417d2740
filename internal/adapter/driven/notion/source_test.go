package notion_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/notion"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// rewriteTransport sends every request to the test server, keeping the path.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

// recorded is one request seen by the fake Notion API.
type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type fakeNotion struct {
	mu       sync.Mutex
	requests []recorded
	handle   func(w http.ResponseWriter, r recorded)
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.handle(w, rec)
}

func (f *fakeNotion) queries() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if strings.HasSuffix(r.Path, "/query") {
			out = append(out, r)
		}
	}
	return out
}

func newTestSource(t *testing.T, fake *fakeNotion) *notion.Source {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	return notion.NewSource(notion.Config{
		RateLimit: 1000,
		Transport: rewriteTransport{target: target},
	}, slog.New(slog.DiscardHandler))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "error", "status": status, "code": code, "message": message,
	})
}

const schemaJSON = `{
	"object": "database",
	"id": "db-1",
	"properties": {
		"Name": {"id": "title", "type": "title", "title": {}},
		"Status": {"id": "s1", "type": "status", "status": {"options": [], "groups": []}},
		"Stage": {"id": "s2", "type": "select", "select": {"options": []}},
		"Notes": {"id": "n1", "type": "rich_text", "rich_text": {}}
	}
}`

const resultsJSON = `{
	"object": "list",
	"has_more": false,
	"results": [
		{
			"object": "page",
			"id": "page-1",
			"url": "https://www.notion.so/page-1",
			"created_time": "2024-01-01T00:00:00.000Z",
			"last_edited_time": "2024-01-02T00:00:00.000Z",
			"properties": {
				"Name": {"id": "title", "type": "title", "title": [{"type": "text", "text": {"content": "Fix "}, "plain_text": "Fix "}, {"type": "text", "text": {"content": "login"}, "plain_text": "login"}]},
				"Status": {"id": "s1", "type": "status", "status": {"id": "x", "name": "Todo", "color": "red"}},
				"Priority": {"id": "p1", "type": "select", "select": {"id": "y", "name": "High", "color": "red"}},
				"Description": {"id": "d1", "type": "rich_text", "rich_text": [{"type": "text", "text": {"content": "Steps"}, "plain_text": "Steps"}]}
			}
		},
		{
			"object": "page",
			"id": "page-2",
			"url": "https://www.notion.so/page-2",
			"created_time": "2024-01-01T00:00:00.000Z",
			"last_edited_time": "2024-01-02T00:00:00.000Z",
			"properties": {
				"Name": {"id": "title", "type": "title", "title": []},
				"status": {"id": "s3", "type": "select", "select": {"id": "z", "name": "Done", "color": "green"}}
			}
		}
	]
}`

func creds() model.Credentials {
	return model.Credentials{Token: "secret_test_token", DatabaseID: "db-1"}
}

func TestListTasks_MapsPages(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, resultsJSON)
	}}
	src := newTestSource(t, fake)

	tasks, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	first := tasks[0]
	assert.Equal(t, "page-1", first.PageID)
	assert.Equal(t, "Fix login", first.Title)
	require.NotNil(t, first.Status)
	assert.Equal(t, "Todo", *first.Status)
	require.NotNil(t, first.Priority)
	assert.Equal(t, "High", *first.Priority)
	require.NotNil(t, first.Description)
	assert.Equal(t, "Steps", *first.Description)
	assert.Equal(t, "https://www.notion.so/page-1", first.URL)

	second := tasks[1]
	assert.Equal(t, "Untitled", second.Title)
	require.NotNil(t, second.Status)
	assert.Equal(t, "Done", *second.Status)
	assert.Nil(t, second.Priority)
	assert.Nil(t, second.Description)

	queries := fake.queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "Bearer secret_test_token", queries[0].Auth)
	assert.EqualValues(t, 100, queries[0].Body["page_size"])
	assert.NotContains(t, queries[0].Body, "filter")
}

func TestListTasks_LimitCapsPageSizeAndResults(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		_, _ = io.WriteString(w, resultsJSON)
	}}
	src := newTestSource(t, fake)

	tasks, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{Limit: 1})
	require.NoError(t, err)

	assert.Len(t, tasks, 1)
	assert.EqualValues(t, 1, fake.queries()[0].Body["page_size"])
}

func TestListTasks_StatusFilterFromSchema(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, schemaJSON)
			return
		}
		_, _ = io.WriteString(w, resultsJSON)
	}}
	src := newTestSource(t, fake)

	_, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{Status: "Todo"})
	require.NoError(t, err)

	queries := fake.queries()
	require.Len(t, queries, 1)
	filter, ok := queries[0].Body["filter"].(map[string]any)
	require.True(t, ok, "query carries a filter")

	or, ok := filter["or"].([]any)
	require.True(t, ok, "two status-like properties are OR-combined")
	require.Len(t, or, 2)

	stage := or[0].(map[string]any)
	assert.Equal(t, "Stage", stage["property"])
	assert.Equal(t, map[string]any{"equals": "Todo"}, stage["select"])

	status := or[1].(map[string]any)
	assert.Equal(t, "Status", status["property"])
	assert.Equal(t, map[string]any{"equals": "Todo"}, status["status"])
}

func TestListTasks_RetriesWithoutFilterOn400(t *testing.T) {
	fake := &fakeNotion{}
	fake.handle = func(w http.ResponseWriter, r recorded) {
		switch {
		case r.Method == http.MethodGet:
			_, _ = io.WriteString(w, schemaJSON)
		case r.Body["filter"] != nil:
			writeError(w, http.StatusBadRequest, "validation_error", "Invalid status option.")
		default:
			_, _ = io.WriteString(w, resultsJSON)
		}
	}
	src := newTestSource(t, fake)

	tasks, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{Status: "Nope"})
	require.NoError(t, err)

	assert.Len(t, tasks, 2)
	queries := fake.queries()
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0].Body, "filter")
	assert.NotContains(t, queries[1].Body, "filter")
}

func TestListTasks_SchemaFailureListsUnfiltered(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		if r.Method == http.MethodGet {
			writeError(w, http.StatusNotFound, "object_not_found", "Could not find database.")
			return
		}
		_, _ = io.WriteString(w, resultsJSON)
	}}
	src := newTestSource(t, fake)

	_, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{Status: "Todo"})
	require.NoError(t, err)

	queries := fake.queries()
	require.Len(t, queries, 1)
	assert.NotContains(t, queries[0].Body, "filter")
}

func TestListTasks_RemoteErrorCarriesMessage(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
	}}
	src := newTestSource(t, fake)

	_, err := src.ListTasks(context.Background(), creds(), model.TaskFilter{})

	var remote *driven.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.Status)
	assert.Equal(t, "unauthorized", remote.Code)
	assert.Equal(t, "API token is invalid.", remote.Message)
}

func TestUpdateStatus_FallsBackToSelect(t *testing.T) {
	fake := &fakeNotion{}
	fake.handle = func(w http.ResponseWriter, r recorded) {
		props, _ := r.Body["properties"].(map[string]any)
		prop, _ := props["Stage"].(map[string]any)
		if _, isStatus := prop["status"]; isStatus {
			writeError(w, http.StatusBadRequest, "validation_error", "Stage is expected to be select.")
			return
		}
		_, _ = io.WriteString(w, `{"object":"page","id":"page-1","created_time":"2024-01-01T00:00:00.000Z","last_edited_time":"2024-01-01T00:00:00.000Z","properties":{}}`)
	}
	src := newTestSource(t, fake)

	err := src.UpdateStatus(context.Background(), creds(), model.StatusUpdate{
		PageID: "page-1", Status: "Done", PropertyName: "Stage",
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodPatch, fake.requests[1].Method)
	assert.True(t, strings.HasSuffix(fake.requests[1].Path, "/pages/page-1"))
	props := fake.requests[1].Body["properties"].(map[string]any)
	stage := props["Stage"].(map[string]any)
	assert.Equal(t, "Done", stage["select"].(map[string]any)["name"])
}

func TestUpdateStatus_BothShapesRejected(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find page.")
	}}
	src := newTestSource(t, fake)

	err := src.UpdateStatus(context.Background(), creds(), model.StatusUpdate{PageID: "page-9", Status: "Done"})

	var remote *driven.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Could not find page.", remote.Message)
}

func TestTestConnection(t *testing.T) {
	fake := &fakeNotion{handle: func(w http.ResponseWriter, r recorded) {
		if r.Auth != "Bearer secret_test_token" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		_, _ = io.WriteString(w, `{"object":"user","id":"bot-1","type":"bot","name":"panel","bot":{}}`)
	}}
	src := newTestSource(t, fake)

	require.NoError(t, src.TestConnection(context.Background(), creds()))

	err := src.TestConnection(context.Background(), model.Credentials{Token: "secret_wrong"})
	var remote *driven.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.Status)
}
