package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, actor user.User) (*mux.Router, func()) {
	repo := NewStubRepository()
	handler := NewHandler(NewService(repo, database.NoopTransactor{}))
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), actor)))
		})
	})
	r.HandleFunc("/api/catalog", handler.Create).Methods("POST")
	r.HandleFunc("/api/catalog", handler.List).Methods("GET")
	r.HandleFunc("/api/catalog/{id}", handler.Get).Methods("GET")
	r.HandleFunc("/api/catalog/{id}", handler.Update).Methods("PUT")
	r.HandleFunc("/api/catalog/{id}", handler.Delete).Methods("DELETE")
	return r, repo.Cleanup
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequestWithContext(context.Background(), method, target, nil)
	} else {
		req = httptest.NewRequestWithContext(context.Background(), method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandler_CreateHierarchy(t *testing.T) {
	// given
	r, cleanup := setupRouter(t, user.User{Id: 1, Admin: true})
	defer cleanup()

	// when
	cycle := doRequest(r, "POST", "/api/catalog", `{"name":"Cycle","type":"CYCLE"}`)
	phase := doRequest(r, "POST", "/api/catalog", `{"name":"Phase","type":"PHASE","parentId":1}`)
	activity := doRequest(r, "POST", "/api/catalog", `{"name":"Activity","type":"ACTIVITY","parentId":2,"complexity":"2.5"}`)

	// then
	assert.Equal(t, http.StatusCreated, cycle.Code)
	assert.Equal(t, http.StatusCreated, phase.Code)
	require.Equal(t, http.StatusCreated, activity.Code)
	var created NodeDTO
	require.NoError(t, json.NewDecoder(activity.Body).Decode(&created))
	assert.Equal(t, 3, created.Id)
	assert.Equal(t, "2.5000", *created.Complexity)

	list := doRequest(r, "GET", "/api/catalog?type=ACTIVITY", "")
	assert.Equal(t, http.StatusOK, list.Code)
	var nodes []NodeDTO
	require.NoError(t, json.NewDecoder(list.Body).Decode(&nodes))
	assert.Len(t, nodes, 1)
}

func TestHandler_Errors(t *testing.T) {
	t.Run("should report invalid hierarchy", func(t *testing.T) {
		r, cleanup := setupRouter(t, user.User{Id: 1, Admin: true})
		defer cleanup()
		doRequest(r, "POST", "/api/catalog", `{"name":"Cycle","type":"CYCLE"}`)

		rr := doRequest(r, "POST", "/api/catalog", `{"name":"Activity","type":"ACTIVITY","parentId":1,"complexity":"1"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var response rest.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		assert.Equal(t, apperror.InvalidHierarchy, response.Kind)
	})

	t.Run("should reject malformed complexity", func(t *testing.T) {
		r, cleanup := setupRouter(t, user.User{Id: 1, Admin: true})
		defer cleanup()

		rr := doRequest(r, "POST", "/api/catalog", `{"name":"a","type":"ACTIVITY","parentId":1,"complexity":"abc"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should forbid writes for non admin", func(t *testing.T) {
		r, cleanup := setupRouter(t, user.User{Id: 2})
		defer cleanup()

		rr := doRequest(r, "POST", "/api/catalog", `{"name":"Cycle","type":"CYCLE"}`)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("should report node in use", func(t *testing.T) {
		r, cleanup := setupRouter(t, user.User{Id: 1, Admin: true})
		defer cleanup()
		doRequest(r, "POST", "/api/catalog", `{"name":"Cycle","type":"CYCLE"}`)
		doRequest(r, "POST", "/api/catalog", `{"name":"Phase","type":"PHASE","parentId":1}`)

		rr := doRequest(r, "DELETE", "/api/catalog/1", "")

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("should return not found", func(t *testing.T) {
		r, cleanup := setupRouter(t, user.User{Id: 2})
		defer cleanup()

		rr := doRequest(r, "GET", "/api/catalog/77", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandler_Update(t *testing.T) {
	// given
	r, cleanup := setupRouter(t, user.User{Id: 1, Admin: true})
	defer cleanup()
	doRequest(r, "POST", "/api/catalog", `{"name":"Cycle","type":"CYCLE"}`)

	// when
	rr := doRequest(r, "PUT", "/api/catalog/1", `{"name":"Renamed"}`)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var updated NodeDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, Cycle, updated.Type)
	assert.Nil(t, updated.Complexity)
}
