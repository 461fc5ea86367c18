package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type sample struct {
	Name  string `json:"name" binding:"required,notblank"`
	Items []item `json:"items" binding:"max=2,dive"`
}

type item struct {
	Option int `json:"option" binding:"required,min=1,max=4"`
}

func bind(t *testing.T, body string) map[string]string {
	t.Helper()
	Setup()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var dst sample
	return Bind(c, &dst)
}

func TestBind(t *testing.T) {
	if errs := bind(t, `{"name":"ok","items":[{"option":2}]}`); errs != nil {
		t.Fatalf("valid body rejected: %v", errs)
	}

	errs := bind(t, `{"name":"   ","items":[{"option":1},{"option":9}]}`)
	if errs["name"] != "name must not be blank" {
		t.Errorf("name error = %q", errs["name"])
	}
	if _, ok := errs["items[1].option"]; !ok {
		t.Errorf("missing nested path in %v", errs)
	}

	if errs := bind(t, `{"name":`); errs["detail"] == "" {
		t.Errorf("malformed JSON: %v", errs)
	}
}

func TestTranslateErrors_NonValidation(t *testing.T) {
	got := TranslateErrors(errors.New("boom"))
	if got["detail"] != "boom" {
		t.Fatalf("got %v", got)
	}
}
