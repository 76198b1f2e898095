package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	t.Run("SetUserContext and GetUserIDFromContext", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), "user-100", "user@example.com", RoleCustomer)

		id, ok := GetUserIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, "user-100", id)
		assert.Equal(t, "user@example.com", GetUserEmailFromContext(ctx))
		assert.Equal(t, RoleCustomer, GetUserRoleFromContext(ctx))
		assert.False(t, IsAdmin(ctx))
	})

	t.Run("GetUserIDFromContext with empty context", func(t *testing.T) {
		_, ok := GetUserIDFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("Empty id is not an identity", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), "", "", "")
		_, ok := GetUserIDFromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("Admin role", func(t *testing.T) {
		ctx := SetUserContext(context.Background(), "admin-1", "admin@example.com", RoleAdmin)
		assert.True(t, IsAdmin(ctx))
	})
}

func TestPtrHelpers(t *testing.T) {
	str := "test"
	assert.Equal(t, "test", PtrString(&str))
	assert.Equal(t, "", PtrString(nil))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=15&page=abc", nil)

	assert.Equal(t, 15, QueryInt(req, "limit", 20))
	assert.Equal(t, 1, QueryInt(req, "page", 1))
	assert.Equal(t, 7, QueryInt(req, "missing", 7))
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, "error message", http.StatusBadRequest)

	resp := w.Result()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "error message", body["error"])
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, map[string]int{"count": 2}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}
