package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

type fakeAPI struct {
	refreshes int32
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"error": map[string]interface{}{"code": "UNAUTHORIZED", "message": "unauthorized", "status": 401},
	})
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"access_token": "old", "refresh_token": "r0"},
		})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		atomic.AddInt32(&api.refreshes, 1)
		time.Sleep(50 * time.Millisecond)
		if payload.RefreshToken != "r0" {
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"access_token": "new", "refresh_token": "r1"},
		})
	})
	mux.HandleFunc("/students/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new" {
			unauthorized(w)
			return
		}
		w.Header().Set("Content-Type", roster.ContentTypeCSV)
		w.Header().Set("Content-Disposition", `attachment; filename="students_export_2024-03-01.csv"`)
		_, _ = io.WriteString(w, "\"First Name\"\n")
	})
	mux.HandleFunc("/students/import", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(file)
		outcome := roster.Parse(string(content))
		if !outcome.Success {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error": map[string]interface{}{"code": "IMPORT_FAILED", "message": "no valid rows", "status": 422, "details": outcome},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"success": true, "students": outcome.Students, "dry_run": r.URL.Query().Get("dryRun") == "true"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return api, server
}

func TestClientLoginStoresSession(t *testing.T) {
	_, server := newFakeAPI(t)
	c := New(server.URL, nil)

	require.NoError(t, c.Login(context.Background(), "teacher@example.com", "secret"))
	assert.Equal(t, Session{AccessToken: "old", RefreshToken: "r0"}, c.Session().Session())
}

func TestClientRefreshesOnceForConcurrentCallers(t *testing.T) {
	api, server := newFakeAPI(t)
	shared := NewRefresher(Session{})
	first := New(server.URL, shared)
	require.NoError(t, first.Login(context.Background(), "teacher@example.com", "secret"))
	second := New(server.URL, shared)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		c := first
		if i%2 == 1 {
			c = second
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			download, err := c.Export(context.Background(), roster.FormatCSV)
			if err == nil && download.Name != "students_export_2024-03-01.csv" {
				err = errors.New("unexpected filename " + download.Name)
			}
			errs <- err
		}(c)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshes))
	assert.Equal(t, Session{AccessToken: "new", RefreshToken: "r1"}, shared.Session())
}

func TestClientRefreshFailureIsReturned(t *testing.T) {
	api, server := newFakeAPI(t)
	c := New(server.URL, NewRefresher(Session{AccessToken: "old", RefreshToken: "revoked"}))

	_, err := c.Export(context.Background(), roster.FormatCSV)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshes))
}

func TestRefresherWithoutSession(t *testing.T) {
	r := NewRefresher(Session{})
	_, err := r.Refresh(context.Background(), "", func(context.Context, string) (Session, error) {
		t.Fatal("refresh must not be called")
		return Session{}, nil
	})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRefresherSkipsWhenAlreadyRotated(t *testing.T) {
	r := NewRefresher(Session{AccessToken: "new", RefreshToken: "r1"})
	session, err := r.Refresh(context.Background(), "old", func(context.Context, string) (Session, error) {
		t.Fatal("refresh must not be called")
		return Session{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", session.AccessToken)
}

func TestClientImportReportsRejectedRows(t *testing.T) {
	_, server := newFakeAPI(t)
	c := New(server.URL, NewRefresher(Session{AccessToken: "new"}))

	report, err := c.Import(context.Background(), "roster.csv", []byte("First Name,Last Name,Phone\nJohn,Doe,abc\n"), false)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "IMPORT_FAILED", apiErr.Code)
	require.NotNil(t, report)
	assert.Equal(t, []int{2}, report.InvalidRows)
}

func TestClientImportDryRun(t *testing.T) {
	_, server := newFakeAPI(t)
	c := New(server.URL, NewRefresher(Session{AccessToken: "new"}))

	report, err := c.Import(context.Background(), "roster.csv", []byte("First Name,Last Name,Phone\nJohn,Doe,555-123-4567\n"), true)

	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Students, 1)
}
