package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cake-haven/internal/payment"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fakePaymentsService struct {
	err         error
	gotPayload  []byte
	gotSig      string
	invocations int
}

func (f *fakePaymentsService) HandleNotification(ctx context.Context, payload []byte, sigHeader string) error {
	f.invocations++
	f.gotPayload = payload
	f.gotSig = sigHeader
	return f.err
}

func webhookRequest(body string, sig string) *http.Request {
	req := httptest.NewRequest("POST", "/api/stripe/webhook", bytes.NewReader([]byte(body)))
	req.Header.Set("Stripe-Signature", sig)
	return req
}

func TestWebhookHandlerAcknowledgesProcessedEvents(t *testing.T) {
	svc := &fakePaymentsService{}
	handler := NewWebhookHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, webhookRequest(`{"type":"checkout.session.completed"}`, "t=1,v1=abc"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.gotSig != "t=1,v1=abc" {
		t.Errorf("signature header not forwarded, got %q", svc.gotSig)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["received"] {
		t.Error("expected received=true in response")
	}
}

func TestWebhookHandlerRejectsInvalidSignatureWith400(t *testing.T) {
	svc := &fakePaymentsService{
		err: fmt.Errorf("%w: bad signature", payment.ErrInvalidSignature),
	}
	handler := NewWebhookHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, webhookRequest(`{"type":"checkout.session.completed"}`, "t=1,v1=forged"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", w.Code)
	}
}

func TestWebhookHandlerReturns500OnProcessingFailure(t *testing.T) {
	svc := &fakePaymentsService{err: fmt.Errorf("database unavailable")}
	handler := NewWebhookHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, webhookRequest(`{"type":"checkout.session.completed"}`, "t=1,v1=abc"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on processing failure, got %d", w.Code)
	}
	if svc.invocations != 1 {
		t.Errorf("expected one service invocation, got %d", svc.invocations)
	}
}
