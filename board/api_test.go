package board

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestActivityLog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "t-1", r.URL.Query().Get("node_id"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(&ActivityLogResult{
			Entries: []*ActivityLogEntry{
				{NodeId: "t-1", Actor: "a-1", Message: "picked up"},
				{NodeId: "t-1", Message: "status changed to in_progress"},
			},
			NextPage: 3,
		})
	}))
	defer server.Close()

	api := NewDashboardApi(server.URL)
	defer api.Close()
	api.SetByJwt("token-123")

	callback, c := NewBlockingApiCallback[*ActivityLogResult]()
	api.ActivityLog(&ActivityLogArgs{
		NodeId: "t-1",
		Page:   2,
	}, callback)

	r := <-c
	assert.Equal(t, nil, r.Error)
	assert.Equal(t, 2, len(r.Result.Entries))
	assert.Equal(t, "picked up", r.Result.Entries[0].Message)
	assert.Equal(t, 3, r.Result.NextPage)
}

func TestDocumentBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/d-1/body", r.URL.Path)
		json.NewEncoder(w).Encode(&DocumentBodyResult{
			Id:      "d-1",
			DocType: "design",
			Content: "## Overview",
		})
	}))
	defer server.Close()

	api := NewDashboardApi(server.URL)
	defer api.Close()

	callback, c := NewBlockingApiCallback[*DocumentBodyResult]()
	api.DocumentBody("d-1", callback)

	r := <-c
	assert.Equal(t, nil, r.Error)
	assert.Equal(t, "d-1", r.Result.Id)
	assert.Equal(t, "## Overview", r.Result.Content)
}

func TestDocumentBodyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such document", http.StatusNotFound)
	}))
	defer server.Close()

	api := NewDashboardApi(server.URL)
	defer api.Close()

	callback, c := NewBlockingApiCallback[*DocumentBodyResult]()
	api.DocumentBody("missing", callback)

	r := <-c
	assert.NotEqual(t, nil, r.Error)
	// the response body is surfaced as the error message
	assert.Equal(t, "no such document", r.Error.Error())
}

func TestOwners(t *testing.T) {
	requested := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/owners", r.URL.Path)
		requested <- struct{}{}
		json.NewEncoder(w).Encode(&OwnersResult{
			Owners: []string{"dana", "kim"},
		})
	}))
	defer server.Close()

	api := NewDashboardApi(server.URL)
	defer api.Close()

	callback, c := NewBlockingApiCallback[*OwnersResult]()
	api.Owners(callback)

	r := <-c
	assert.Equal(t, nil, r.Error)
	assert.Equal(t, []string{"dana", "kim"}, r.Result.Owners)
	<-requested

	// fire and forget still issues the request
	api.Owners(NewNoopApiCallback[*OwnersResult]())
	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for request")
	}
}
