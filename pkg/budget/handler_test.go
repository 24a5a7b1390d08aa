package budget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createBody = `{"contractId":1,"projectId":1,"discountPercent":"10","notes":"first draft",` +
	`"items":[{"activityId":3,"hours":"3"},{"activityId":4,"hours":"2","notes":"api"}]}`

func setupRouter(t *testing.T, actor user.User) (*mux.Router, func()) {
	teardown := setup(t)
	handler := NewHandler(service, NewCsvRenderer())
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), actor)))
		})
	})
	r.HandleFunc("/api/budgets", handler.Create).Methods("POST")
	r.HandleFunc("/api/budgets", handler.List).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", handler.Get).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", handler.Replace).Methods("PUT")
	r.HandleFunc("/api/budgets/{id}", handler.Delete).Methods("DELETE")
	r.HandleFunc("/api/budgets/{id}/approve", handler.Approve).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/discount", handler.UpdateDiscount).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/refresh", handler.Refresh).Methods("POST")
	r.HandleFunc("/api/budgets/{id}/items", handler.AddItem).Methods("POST")
	r.HandleFunc("/api/budgets/{id}/items/{itemId}", handler.UpdateItemHours).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/items/{itemId}", handler.RemoveItem).Methods("DELETE")
	return r, teardown
}

func doRequest(r http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequestWithContext(context.Background(), method, target, nil)
	} else {
		req = httptest.NewRequestWithContext(context.Background(), method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeBudget(t *testing.T, rr *httptest.ResponseRecorder) BudgetDTO {
	t.Helper()
	var dto BudgetDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
	return dto
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) rest.ErrorResponse {
	t.Helper()
	var body rest.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestHandler_Create(t *testing.T) {
	t.Run("should render decimals with four digits", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 2})
		defer teardown()

		// when
		rr := doRequest(r, "POST", "/api/budgets", createBody)

		// then
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decodeBudget(t, rr)
		assert.Equal(t, "ORC/2025/1/000001", created.Number)
		assert.Equal(t, "1.0", created.Version)
		assert.Equal(t, Draft, created.Status)
		assert.Equal(t, "2025-03-10", created.IssueDate)
		assert.Equal(t, "first draft", created.Notes)
		assert.Equal(t, "85.0000", created.GrossTotal)
		assert.Equal(t, "76.5000", created.NetTotal)
		require.Len(t, created.Items, 2)
		assert.Equal(t, "7.5000", created.Items[0].SubtotalUst)
		assert.Equal(t, "api", created.Items[1].Notes)
	})

	t.Run("should map domain failures to status codes", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 2})
		defer teardown()

		tests := []struct {
			name   string
			body   string
			status int
			kind   apperror.Kind
		}{
			{"inactive contract", `{"contractId":2,"projectId":1,"items":[{"activityId":3,"hours":"1"}]}`, http.StatusUnprocessableEntity, apperror.InvalidContract},
			{"unknown project", `{"contractId":1,"projectId":9,"items":[{"activityId":3,"hours":"1"}]}`, http.StatusUnprocessableEntity, apperror.InvalidProject},
			{"zero hours", `{"contractId":1,"projectId":1,"items":[{"activityId":3,"hours":"0"}]}`, http.StatusUnprocessableEntity, apperror.EmptyOrZeroHours},
			{"over-precise discount", `{"contractId":1,"projectId":1,"discountPercent":"100.00004","items":[{"activityId":3,"hours":"1"}]}`, http.StatusBadRequest, apperror.Validation},
			{"over-precise hours", `{"contractId":1,"projectId":1,"items":[{"activityId":3,"hours":"0.00004"}]}`, http.StatusBadRequest, apperror.Validation},
			{"unknown activity", `{"contractId":1,"projectId":1,"items":[{"activityId":99,"hours":"1"}]}`, http.StatusNotFound, apperror.NotFound},
			{"bad decimal", `{"contractId":1,"projectId":1,"items":[{"activityId":3,"hours":"three"}]}`, http.StatusBadRequest, apperror.Validation},
			{"unknown field", `{"contractId":1,"projectId":1,"items":[],"total":"1"}`, http.StatusBadRequest, apperror.Validation},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// when
				rr := doRequest(r, "POST", "/api/budgets", tt.body)

				// then
				assert.Equal(t, tt.status, rr.Code)
				assert.Equal(t, tt.kind, decodeError(t, rr).Kind)
			})
		}
	})
}

func TestHandler_Replace(t *testing.T) {
	t.Run("should honour If-Match", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 2})
		defer teardown()
		require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)

		// when
		stale := doRequest(r, "PUT", "/api/budgets/1", createBody, "If-Match", `"1.4"`)
		current := doRequest(r, "PUT", "/api/budgets/1", createBody, "If-Match", `"1.0"`)

		// then
		assert.Equal(t, http.StatusConflict, stale.Code)
		assert.Equal(t, apperror.Conflict, decodeError(t, stale).Kind)
		require.Equal(t, http.StatusOK, current.Code)
		assert.Equal(t, "1.1", decodeBudget(t, current).Version)
	})

	t.Run("should read the expected version from the body", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 2})
		defer teardown()
		require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)
		body := strings.Replace(createBody, `"notes":"first draft"`, `"expectedVersion":"2.0"`, 1)

		// when
		rr := doRequest(r, "PUT", "/api/budgets/1", body)

		// then
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHandler_ItemLifecycle(t *testing.T) {
	// given
	r, teardown := setupRouter(t, user.User{Id: 2})
	defer teardown()
	require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)

	// when
	added := doRequest(r, "POST", "/api/budgets/1/items", `{"activityId":5,"hours":"5"}`)
	changed := doRequest(r, "PATCH", "/api/budgets/1/items/1", `{"hours":"4","reason":"scope"}`)
	removed := doRequest(r, "DELETE", "/api/budgets/1/items/2", "")

	// then
	require.Equal(t, http.StatusCreated, added.Code)
	assert.Equal(t, "145.0000", decodeBudget(t, added).GrossTotal)
	require.Equal(t, http.StatusOK, changed.Code)
	assert.Equal(t, "170.0000", decodeBudget(t, changed).GrossTotal)
	require.Equal(t, http.StatusOK, removed.Code)
	final := decodeBudget(t, removed)
	assert.Equal(t, "160.0000", final.GrossTotal)
	require.Len(t, final.Items, 2)
	assert.Equal(t, 1, final.Items[0].Sequence)
	assert.Equal(t, 3, final.Items[1].Sequence)
}

func TestHandler_Approval(t *testing.T) {
	t.Run("should forbid members", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 2})
		defer teardown()
		require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)

		// when
		approve := doRequest(r, "PATCH", "/api/budgets/1/approve", "")
		discount := doRequest(r, "PATCH", "/api/budgets/1/discount", `{"discountPercent":"5"}`)
		remove := doRequest(r, "DELETE", "/api/budgets/1", "")

		// then
		assert.Equal(t, http.StatusForbidden, approve.Code)
		assert.Equal(t, http.StatusForbidden, discount.Code)
		assert.Equal(t, http.StatusForbidden, remove.Code)
	})

	t.Run("should freeze the budget", func(t *testing.T) {
		r, teardown := setupRouter(t, user.User{Id: 1, Admin: true})
		defer teardown()
		require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)

		// when
		approved := doRequest(r, "PATCH", "/api/budgets/1/approve", "")
		again := doRequest(r, "PATCH", "/api/budgets/1/approve", "")
		edit := doRequest(r, "PATCH", "/api/budgets/1/items/1", `{"hours":"4"}`)

		// then
		require.Equal(t, http.StatusOK, approved.Code)
		assert.Equal(t, Approved, decodeBudget(t, approved).Status)
		assert.Equal(t, http.StatusConflict, again.Code)
		assert.Equal(t, apperror.AlreadyApproved, decodeError(t, again).Kind)
		assert.Equal(t, http.StatusConflict, edit.Code)
		assert.Equal(t, apperror.ImmutableResource, decodeError(t, edit).Kind)
	})
}

func TestHandler_GetAndList(t *testing.T) {
	r, teardown := setupRouter(t, user.User{Id: 2})
	defer teardown()
	require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)
	setCatalogComplexity(analysisId, "5")

	t.Run("get should project", func(t *testing.T) {
		rr := doRequest(r, "GET", "/api/budgets/1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "160.0000", decodeBudget(t, rr).GrossTotal)
		stored, _ := repoStub.Get(context.Background(), 1)
		assertDecimal(t, "85", stored.GrossTotal)
	})

	t.Run("get should reject a malformed refresh flag", func(t *testing.T) {
		rr := doRequest(r, "GET", "/api/budgets/1?refresh=maybe", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("refresh should persist", func(t *testing.T) {
		rr := doRequest(r, "POST", "/api/budgets/1/refresh", "")
		require.Equal(t, http.StatusOK, rr.Code)
		stored, _ := repoStub.Get(context.Background(), 1)
		assertDecimal(t, "160", stored.GrossTotal)
	})

	t.Run("list should filter by status", func(t *testing.T) {
		drafts := doRequest(r, "GET", "/api/budgets?status=draft&contractId=1", "")
		approved := doRequest(r, "GET", "/api/budgets?status=APPROVED", "")
		invalid := doRequest(r, "GET", "/api/budgets?status=closed", "")

		require.Equal(t, http.StatusOK, drafts.Code)
		var draftDTOs []BudgetDTO
		require.NoError(t, json.NewDecoder(drafts.Body).Decode(&draftDTOs))
		assert.Len(t, draftDTOs, 1)
		require.Equal(t, http.StatusOK, approved.Code)
		assert.Equal(t, "[]\n", approved.Body.String())
		assert.Equal(t, http.StatusBadRequest, invalid.Code)
	})

	t.Run("missing budget should be 404", func(t *testing.T) {
		rr := doRequest(r, "GET", "/api/budgets/42", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandler_GetCsv(t *testing.T) {
	r, teardown := setupRouter(t, user.User{Id: 2})
	defer teardown()
	require.Equal(t, http.StatusCreated, doRequest(r, "POST", "/api/budgets", createBody).Code)

	// when
	rr := doRequest(r, "GET", "/api/budgets/1", "", "Accept", "text/csv")

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ORC-2025-1-000001.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Body.String(), "Number,ORC/2025/1/000001\n")
	assert.Contains(t, rr.Body.String(), "Net total,76.5000\n")
}
