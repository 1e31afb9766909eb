package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgErrors "dogeow-realtime/pkg/errors"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{
			name:       "http error",
			err:        pkgErrors.NewUnavailableHTTPError("redis down"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   http.StatusServiceUnavailable,
			wantMsg:    "redis down",
		},
		{
			name:       "http error without status",
			err:        &pkgErrors.HTTPError{Code: 10, Message: "bad"},
			wantStatus: http.StatusBadRequest,
			wantCode:   10,
			wantMsg:    "bad",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   InternalServerErrorCode,
			wantMsg:    DefaultErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp Resp
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.ErrorCode != tt.wantCode || resp.Message != tt.wantMsg {
				t.Errorf("resp = %+v, want code %d message %q", resp, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"count": 3})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := `{"error_code":0,"message":"Success","data":{"count":3}}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
}
