package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"merchant-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(requestID string, write func(c *gin.Context)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if requestID != "" {
		c.Set(RequestIDKey, requestID)
	}
	write(c)
	return w
}

func TestSuccessEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		write    func(c *gin.Context)
		wantCode int
		wantData string
	}{
		{"ok", func(c *gin.Context) { OK(c, gin.H{"token": "native"}) }, http.StatusOK, `{"token":"native"}`},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 1}) }, http.StatusCreated, `{"id":1}`},
		{"list", func(c *gin.Context) { List(c, []string{"a", "b"}, 2) }, http.StatusOK, `{"items":["a","b"],"count":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := record("req-1", tt.write)
			require.Equal(t, tt.wantCode, w.Code)

			var resp struct {
				Data      json.RawMessage `json:"data"`
				RequestID string          `json:"request_id"`
				Timestamp string          `json:"timestamp"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.JSONEq(t, tt.wantData, string(resp.Data))
			assert.Equal(t, "req-1", resp.RequestID)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody ErrorResponse
	}{
		{
			name:     "app error",
			err:      apperror.ErrInsufficientBalance(),
			wantCode: http.StatusPaymentRequired,
			wantBody: ErrorResponse{ErrorCode: "PAY_001", ErrorKind: "InsufficientBalance", Message: "Insufficient balance"},
		},
		{
			name:     "wrapped app error",
			err:      fmt.Errorf("outer: %w", apperror.ErrTokenNotFound()),
			wantCode: http.StatusNotFound,
			wantBody: ErrorResponse{ErrorCode: "BAL_001", ErrorKind: "TokenNotFound"},
		},
		{
			name:     "plain error is hidden",
			err:      fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: ErrorResponse{ErrorCode: "SYS_000", ErrorKind: "Internal", Message: "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := record("req-2", func(c *gin.Context) { Error(c, tt.err) })
			require.Equal(t, tt.wantCode, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody.ErrorCode, resp.ErrorCode)
			assert.Equal(t, tt.wantBody.ErrorKind, resp.ErrorKind)
			if tt.wantBody.Message != "" {
				assert.Equal(t, tt.wantBody.Message, resp.Message)
			}
			assert.Equal(t, "req-2", resp.RequestID)
			assert.NotContains(t, w.Body.String(), "10.0.0.5")
		})
	}
}

func TestRequestIDFallback(t *testing.T) {
	w := record("", func(c *gin.Context) { OK(c, nil) })

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.RequestID, 36)
}
