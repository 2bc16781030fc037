package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAppErrorResponse(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"app error", UnprocessableError("too few bars").WithParam("reason", "insufficient_data"), http.StatusUnprocessableEntity, "ERR_UNPROCESSABLE"},
		{"wrapped app error", errors.Join(errors.New("ctx"), ConflictError("busy")), http.StatusConflict, "ERR_CONFLICT"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := AppErrorResponse(c, tc.err); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d", rec.Code)
			}
			var body struct {
				Status int        `json:"status"`
				Data   []AppError `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tc.wantCode || len(body.Data) != 1 || body.Data[0].Code != tc.wantErr {
				t.Fatalf("body = %s", rec.Body)
			}
		})
	}
}

func TestAppErrorHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:9000: refused")
	e := ServiceUnavailableError("source unavailable").WithError(cause)
	if !errors.Is(e, cause) {
		t.Fatal("cause not unwrapped")
	}
	b, _ := json.Marshal(e)
	if string(b) != `{"code":"ERR_UNAVAILABLE","message":"source unavailable"}` {
		t.Fatalf("json = %s", b)
	}
}
