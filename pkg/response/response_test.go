package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	c.Writer.WriteHeaderNow()
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccessAndCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"name": "test"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "ok", resp.Message)

	w = performRequest(func(c *gin.Context) {
		Created(c, map[string]string{"id": "abc"})
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", parseResponse(t, w).Message)
}

func TestNoContent(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		NoContent(c)
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestPage(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Page(c, []string{"a", "b"}, 10, 2, 12)
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data PageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Data.Skip)
	assert.Equal(t, 2, resp.Data.Limit)
	assert.Equal(t, int64(12), resp.Data.Total)
}

func TestError_AppErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   int
	}{
		{"bad request", NewBadRequest("validation failed"), http.StatusBadRequest, 400},
		{"unauthenticated", NewUnauthorized("not authenticated"), http.StatusUnauthorized, 401},
		{"forbidden", NewForbidden("insufficient role"), http.StatusForbidden, 403},
		{"not found", NewNotFound("project not found"), http.StatusNotFound, 404},
		{"conflict is a 400", NewConflict("role exists"), http.StatusBadRequest, 409},
		{"server error", NewServerError("boom"), http.StatusInternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				Error(c, fmt.Errorf("wrapped: %w", tt.err))
			})
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.err.Message, resp.Message)
		})
	}
}

func TestError_WithGenericErrorHidesDetails(t *testing.T) {
	var ctx *gin.Context
	w := performRequest(func(c *gin.Context) {
		ctx = c
		Error(c, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
	assert.Len(t, ctx.Errors, 1)
}

func TestAbort_StopsChain(t *testing.T) {
	router := gin.New()
	reached := false
	router.GET("/x", func(c *gin.Context) {
		Abort(c, NewForbidden("nope"))
	}, func(c *gin.Context) {
		reached = true
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/x", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("checking project: %w", NewForbidden("Access denied. Must be Admin or Project Owner."))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(errors.New("plain"), ErrForbidden))
	assert.Equal(t, "Access denied. Must be Admin or Project Owner.", errors.Unwrap(err).Error())
}

func TestConvenienceHelpers(t *testing.T) {
	helpers := map[int]func(*gin.Context, string){
		http.StatusBadRequest:          BadRequest,
		http.StatusUnauthorized:        Unauthorized,
		http.StatusForbidden:           Forbidden,
		http.StatusNotFound:            NotFound,
		http.StatusInternalServerError: ServerError,
	}

	for status, helper := range helpers {
		w := performRequest(func(c *gin.Context) { helper(c, "msg") })
		assert.Equal(t, status, w.Code)
		assert.Equal(t, status, parseResponse(t, w).Code)
	}
}
