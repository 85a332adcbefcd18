package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/auth"
	"github.com/padmaraj-kv/powersplit-sub000/internal/metrics"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

type fakeBills map[string]*models.Bill

func (f fakeBills) GetBill(_ context.Context, id string) (*models.Bill, error) {
	b, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("bill not found: %s: %w", id, storage.ErrNotFound)
	}
	return b, nil
}

func testBills() fakeBills {
	return fakeBills{
		"bill-1": {
			ID:          "bill-1",
			Description: "Dinner",
			Currency:    "INR",
			Status:      models.BillActive,
			TotalAmount: decimal.NewFromInt(300),
			Participants: []models.BillParticipant{
				{Name: "Alice", AmountOwed: decimal.NewFromInt(100), PaymentStatus: models.PaymentConfirmed},
				{Name: "Bob", AmountOwed: decimal.NewFromInt(200), PaymentStatus: models.PaymentSent},
			},
		},
	}
}

func TestBillStatusEndpoint(t *testing.T) {
	server := httptest.NewServer(New(Config{Bills: testBills(), PublicBillStatus: true}).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/bills/bill-1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status payment.BillStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if status.PaidCount != 1 || status.PendingCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", status.PaidCount, status.PendingCount)
	}
	if !status.Remaining.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Remaining = %s, want 200", status.Remaining)
	}
	if status.Stats.SentCount != 1 || !status.Stats.MaxAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Stats = %+v, want one sent and max 200", status.Stats)
	}
	if status.Participants[0].Name != "Bob" {
		t.Errorf("first participant = %s, want Bob (highest amount)", status.Participants[0].Name)
	}

	missing, err := http.Get(server.URL + "/api/bills/nope")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing bill status = %d, want 404", missing.StatusCode)
	}
}

func TestBillStatusRequiresToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	server := httptest.NewServer(New(Config{Bills: testBills(), Tokens: tokens}).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/bills/bill-1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	token, err := tokens.Generate("gateway")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/bills/bill-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authorized status = %d, want 200", resp.StatusCode)
	}

	health, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200 without token", health.StatusCode)
	}
}

func TestBillStatusDisabledWithoutAuth(t *testing.T) {
	server := httptest.NewServer(New(Config{Bills: testBills()}).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/bills/bill-1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when neither tokens nor public access are configured", resp.StatusCode)
	}
}

func TestMetricsAndRPCMount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Message("initial", "ok")

	rpc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server := httptest.NewServer(New(Config{
		Bills:      testBills(),
		Gatherer:   reg,
		RPCPath:    "/powersplit.v1.MessageService/",
		RPCHandler: rpc,
	}).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read /metrics failed: %v", err)
	}
	if !strings.Contains(string(body), "powersplit_messages_total") {
		t.Errorf("/metrics missing powersplit_messages_total")
	}

	rpcResp, err := http.Post(server.URL+"/powersplit.v1.MessageService/HandleMessage", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	rpcResp.Body.Close()
	if rpcResp.StatusCode != http.StatusTeapot {
		t.Errorf("RPC status = %d, want the mounted handler's 418", rpcResp.StatusCode)
	}
}

