package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"n": 1}) })
	r.GET("/bad", func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"name": "name is required"})
	})

	tests := []struct {
		path     string
		status   int
		wantCode ErrCode
	}{
		{"/ok", http.StatusOK, ""},
		{"/bad", http.StatusBadRequest, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.status {
				t.Fatalf("status = %d", w.Code)
			}

			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Metadata.RequestID == "" || body.Metadata.Timestamp.IsZero() {
				t.Errorf("metadata = %+v", body.Metadata)
			}
			if tt.wantCode == "" {
				if body.Error != nil || body.Data == nil {
					t.Errorf("body = %s", w.Body)
				}
				return
			}
			if body.Error == nil || body.Error.Code != tt.wantCode || body.Error.Fields["name"] == "" {
				t.Fatalf("body = %s", w.Body)
			}
			if body.Error.Message != GetMessage(tt.wantCode) {
				t.Errorf("message = %q", body.Error.Message)
			}
		})
	}
}
