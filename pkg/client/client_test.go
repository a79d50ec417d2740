package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/mytaskpanel/pkg/client"
)

func TestListTasks_SendsOverrideHeaders(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"tasks":[{"page_id":"p1","title":"Write docs","description":null,"status":"Todo","priority":null,"url":"https://notion.so/p1"}],"total":1}`))
	}))
	defer server.Close()

	c := client.New(server.URL)
	tasks, err := c.ListTasks(context.Background(), model.Credentials{
		Token:      "secret_abc",
		DatabaseID: "db-1",
		Provider:   model.ProviderNotion,
	}, model.TaskFilter{Status: "Todo", Limit: 10})

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "p1", tasks[0].PageID)
	assert.Equal(t, "Write docs", tasks[0].Title)
	require.NotNil(t, tasks[0].Status)
	assert.Equal(t, "Todo", *tasks[0].Status)
	assert.Nil(t, tasks[0].Description)

	assert.Equal(t, "/api/notion/tasks", gotReq.URL.Path)
	assert.Equal(t, "Todo", gotReq.URL.Query().Get("status_filter"))
	assert.Equal(t, "10", gotReq.URL.Query().Get("limit"))
	assert.Equal(t, "secret_abc", gotReq.Header.Get(httphandler.HeaderNotionToken))
	assert.Equal(t, "db-1", gotReq.Header.Get(httphandler.HeaderNotionDatabaseID))
	assert.Equal(t, "notion", gotReq.Header.Get(httphandler.HeaderTaskProvider))
}

func TestListTasks_OmitsEmptyOverrides(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = w.Write([]byte(`{"tasks":[],"total":0}`))
	}))
	defer server.Close()

	tasks, err := client.New(server.URL+"/").ListTasks(context.Background(), model.Credentials{}, model.TaskFilter{})

	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "/api/notion/tasks", gotReq.URL.Path)
	assert.Empty(t, gotReq.URL.RawQuery)
	_, hasToken := gotReq.Header[http.CanonicalHeaderKey(httphandler.HeaderNotionToken)]
	assert.False(t, hasToken)
}

func TestErrorBodyBecomesRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"API token is invalid."}`))
	}))
	defer server.Close()

	_, err := client.New(server.URL).ListTasks(context.Background(), model.Credentials{Token: "bad"}, model.TaskFilter{})

	var remote *driven.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusInternalServerError, remote.Status)
	assert.Equal(t, "API token is invalid.", remote.Message)
}

func TestUnparsedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := client.New(server.URL).Health(context.Background())

	var remote *driven.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadGateway, remote.Status)
	assert.Contains(t, remote.Message, "upstream down")
}

func TestUpdateStatus_PostsBody(t *testing.T) {
	var got httphandler.UpdateStatusRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"Task status updated to Done"}`))
	}))
	defer server.Close()

	err := client.New(server.URL).UpdateStatus(context.Background(), model.Credentials{Token: "t"}, model.StatusUpdate{
		PageID: "p1", Status: "Done", PropertyName: "Stage",
	})

	require.NoError(t, err)
	assert.Equal(t, httphandler.UpdateStatusRequest{PageID: "p1", Status: "Done", StatusPropertyName: "Stage"}, got)
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"connected", http.StatusOK, `{"connected":true,"message":"Connected to Notion API"}`, ""},
		{"rejected", http.StatusOK, `{"connected":false,"error":"API token is invalid."}`, "API token is invalid."},
		{"missing key", http.StatusBadRequest, `{"connected":false,"error":"Notion API key not configured"}`, "Notion API key not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := client.New(server.URL).TestConnection(context.Background(), model.Credentials{})

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var remote *driven.RemoteError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, tt.wantErr, remote.Message)
		})
	}
}

// stubSource serves a fixed task list for the round-trip test.
type stubSource struct {
	creds model.Credentials
}

func (s *stubSource) ListTasks(_ context.Context, creds model.Credentials, _ model.TaskFilter) ([]model.Task, error) {
	s.creds = creds
	status := "In Progress"
	return []model.Task{{PageID: "p9", Title: "Ship it", Status: &status}}, nil
}

func (s *stubSource) UpdateStatus(context.Context, model.Credentials, model.StatusUpdate) error {
	return nil
}

func (s *stubSource) TestConnection(context.Context, model.Credentials) error {
	return nil
}

type memBlobStore map[string]string

func (m memBlobStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memBlobStore) Put(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

func (m memBlobStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestRoundTripThroughServer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	notifier := application.NewNotifier()
	projects := application.NewProjectService(memBlobStore{}, notifier, logger)
	selection := application.NewSelection(projects)

	source := &stubSource{}
	registry := application.NewSourceRegistry()
	registry.Register(model.ProviderNotion, source)
	cache := application.NewQueryCache(application.QueryCacheConfig{}, logger)
	tasks := application.NewTaskService(registry, cache, projects, selection,
		model.Credentials{DatabaseID: "server-db"}, false, logger)

	h := httphandler.NewHandler(projects, selection, tasks, notifier, httphandler.Intervals{}, logger)
	server := httptest.NewServer(httphandler.NewServeMux(h, logger))
	defer server.Close()

	got, err := client.New(server.URL).ListTasks(context.Background(), model.Credentials{Token: "secret_remote"}, model.TaskFilter{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ship it", got[0].Title)
	assert.Equal(t, "secret_remote", source.creds.Token)
	assert.Equal(t, "server-db", source.creds.DatabaseID, "unset override falls back to server defaults")
}
