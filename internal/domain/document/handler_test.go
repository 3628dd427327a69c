package document

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

func newRequest(method, body string, ident *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, "/documents", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ident != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), ident))
	}
	return req
}

func TestHandler_CreateAndAnonymousGet(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()

	rec := httptest.NewRecorder()
	body := `{"kind":"resume","title":"CV","storage_key":"cv.pdf","content_type":"application/pdf","public":true}`
	if err := h.Create(e.NewContext(newRequest(http.MethodPost, body, f.doctor), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	docs, _, _ := f.svc.ListForDoctor(context.Background(), f.doctor, f.doctor.ID, 1, 0)
	rec = httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(docs[0].ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("anonymous read of public document: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "cv.pdf") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Get_PrivateAnonymous(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	d := f.create(t, f.patient, CreateRequest{Kind: KindMedicalRecord})

	c := e.NewContext(newRequest(http.MethodGet, "", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())
	var he *echo.HTTPError
	if err := h.Get(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
