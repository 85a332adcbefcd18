package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/ai"
	"github.com/padmaraj-kv/powersplit-sub000/internal/auth"
	"github.com/padmaraj-kv/powersplit-sub000/internal/contacts"
	"github.com/padmaraj-kv/powersplit-sub000/internal/conversation"
	"github.com/padmaraj-kv/powersplit-sub000/internal/middleware"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/notify"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage/sqlite"
)

const (
	organizerPhone   = "+919800000000"
	participantPhone = "+919876543210"
)

type testServer struct {
	client *MessageServiceClient
	store  *sqlite.SQLiteStore
	sender *notify.LogSender
	clock  *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// setupTestServer creates a test server backed by a temp SQLite database.
func setupTestServer(t *testing.T, opts ...connect.HandlerOption) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	clock := &fakeClock{now: time.Now()}
	sender := notify.NewLogSender()
	payments := payment.NewConfirmationService(store, sender)
	handlers := conversation.NewHandlers(conversation.Deps{
		AI:       ai.NewHeuristic(),
		Contacts: contacts.NewManager(store),
		Payments: payments,
		Requests: payment.NewDistributor(store, sender, nil, nil),
		Bills:    store,
		Now:      clock.Now,
	})
	svc := NewMessageService(store, conversation.NewStateMachine(handlers), payments, WithClock(clock.Now))

	opts = append(opts, connect.WithInterceptors(middleware.LoggingInterceptor()))
	path, handler := NewMessageServiceHandler(svc, opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		client: NewMessageServiceClient(http.DefaultClient, server.URL),
		store:  store,
		sender: sender,
		clock:  clock,
	}
}

func (ts *testServer) send(t *testing.T, userID, content string) *HandleMessageResponse {
	t.Helper()
	resp, err := ts.client.HandleMessage(context.Background(), connect.NewRequest(&HandleMessageRequest{
		UserID:      userID,
		SessionID:   "chat",
		Content:     content,
		SenderPhone: userID,
	}))
	if err != nil {
		t.Fatalf("HandleMessage(%q) failed: %v", content, err)
	}
	return resp.Msg
}

func TestHandleMessagePersistsConversation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.send(t, organizerPhone, "Lunch at Cafe Mocha, total ₹240")
	if resp.CurrentStep != string(models.StepExtractingBill) {
		t.Fatalf("CurrentStep = %s, want extracting_bill", resp.CurrentStep)
	}
	if resp.MessageType != string(models.MessageText) {
		t.Errorf("MessageType = %q, want text", resp.MessageType)
	}

	resp = ts.send(t, organizerPhone, "ok")
	if resp.CurrentStep != string(models.StepConfirmingBill) {
		t.Fatalf("CurrentStep = %s, want confirming_bill (reply %q)", resp.CurrentStep, resp.Content)
	}
	if !strings.Contains(resp.Content, "₹240.00") {
		t.Errorf("reply = %q, want bill summary", resp.Content)
	}

	conv, err := ts.client.GetConversation(context.Background(), connect.NewRequest(&GetConversationRequest{
		UserID:    organizerPhone,
		SessionID: "chat",
	}))
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv.Msg.CurrentStep != string(models.StepConfirmingBill) {
		t.Errorf("stored step = %s, want confirming_bill", conv.Msg.CurrentStep)
	}
	if conv.Msg.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", conv.Msg.MessageCount)
	}
	if conv.Msg.StepDescription != "Confirming bill details" {
		t.Errorf("StepDescription = %q", conv.Msg.StepDescription)
	}
}

func TestHandleMessageSessionExpiry(t *testing.T) {
	ts := setupTestServer(t)

	ts.send(t, organizerPhone, "Lunch total ₹240")
	ts.clock.now = ts.clock.now.Add(DefaultSessionTimeout + time.Minute)

	resp := ts.send(t, organizerPhone, "hello")
	if resp.CurrentStep != string(models.StepInitial) {
		t.Errorf("CurrentStep = %s, want initial after expiry", resp.CurrentStep)
	}
	if !strings.HasPrefix(resp.Content, "Hi!") {
		t.Errorf("reply = %q, want greeting", resp.Content)
	}
}

func TestHandleMessagePaymentPrecheck(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	distributor := payment.NewDistributor(ts.store, ts.sender, nil, nil)
	bill, err := distributor.CreateBill(ctx, "organizer", organizerPhone,
		models.BillData{TotalAmount: decimal.NewFromInt(200), Description: "Movie night", Currency: "INR"},
		[]models.Participant{
			{Name: "Alice", PhoneNumber: participantPhone, AmountOwed: decimal.NewFromInt(100)},
			{Name: "Bob", PhoneNumber: "+919876543211", AmountOwed: decimal.NewFromInt(100)},
		})
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	if _, err := distributor.SendRequests(ctx, bill, "Priya"); err != nil {
		t.Fatalf("SendRequests failed: %v", err)
	}

	resp := ts.send(t, participantPhone, "how much do I owe?")
	if !strings.Contains(resp.Content, "₹100.00") {
		t.Errorf("inquiry reply = %q, want amount owed", resp.Content)
	}

	resp = ts.send(t, participantPhone, "paid ✅")
	if !strings.Contains(resp.Content, "Your payment of ₹100.00 has been confirmed") {
		t.Errorf("confirmation reply = %q", resp.Content)
	}
	if resp.CurrentStep != string(models.StepInitial) {
		t.Errorf("CurrentStep = %s, want initial", resp.CurrentStep)
	}

	stored, err := ts.store.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if stored.ConfirmedCount() != 1 {
		t.Errorf("ConfirmedCount = %d, want 1", stored.ConfirmedCount())
	}

	// With nothing left to confirm the message goes to the conversation.
	resp = ts.send(t, participantPhone, "paid")
	if strings.Contains(resp.Content, "has been confirmed") {
		t.Errorf("second confirmation reply = %q, want conversation reply", resp.Content)
	}
}

func TestHandleMessageInvalidArgument(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		req  *HandleMessageRequest
	}{
		{"missing user", &HandleMessageRequest{Content: "hi"}},
		{"bad message type", &HandleMessageRequest{UserID: "u1", Content: "hi", MessageType: "video"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.client.HandleMessage(context.Background(), connect.NewRequest(tt.req))
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("code = %v, want InvalidArgument (err %v)", connect.CodeOf(err), err)
			}
		})
	}

	_, err := ts.client.GetConversation(context.Background(), connect.NewRequest(&GetConversationRequest{UserID: "nobody"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("GetConversation code = %v, want NotFound", connect.CodeOf(err))
	}
}

func TestHandleMessageRequiresGatewayToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	ts := setupTestServer(t, connect.WithInterceptors(middleware.RequireAuth(tokens)))
	ctx := context.Background()

	_, err := ts.client.HandleMessage(ctx, connect.NewRequest(&HandleMessageRequest{UserID: "u1", Content: "hi"}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", connect.CodeOf(err))
	}

	token, err := tokens.Generate("test-gateway")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	req := connect.NewRequest(&HandleMessageRequest{UserID: "u1", Content: "hi"})
	req.Header().Set("Authorization", "Bearer "+token)
	if _, err := ts.client.HandleMessage(ctx, req); err != nil {
		t.Errorf("authenticated call failed: %v", err)
	}
}

func TestToMessage(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	msg, session, err := toMessage(&HandleMessageRequest{
		UserID:      " u1 ",
		Content:     "hi",
		MessageType: "IMAGE",
		SenderPhone: participantPhone,
		SenderName:  "Alice",
		Media:       []byte{1, 2},
	}, now)
	if err != nil {
		t.Fatalf("toMessage() error = %v", err)
	}
	if session != defaultSessionID {
		t.Errorf("session = %q, want %q", session, defaultSessionID)
	}
	if msg.UserID != "u1" || msg.MessageType != models.MessageImage || msg.ID == "" {
		t.Errorf("msg = %+v", msg)
	}
	if !msg.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %s, want %s", msg.Timestamp, now)
	}
	if msg.SenderPhone() != participantPhone || msg.Metadata[models.MetadataSenderName] != "Alice" {
		t.Errorf("Metadata = %v", msg.Metadata)
	}
}

type failingStore struct{}

func (failingStore) GetConversation(context.Context, string, string) (*models.ConversationState, error) {
	return nil, errors.New("disk I/O error")
}

func (failingStore) SaveConversation(context.Context, *models.ConversationState) error {
	return errors.New("disk I/O error")
}

func TestProcessStoreFailure(t *testing.T) {
	svc := NewMessageService(failingStore{}, conversation.NewStateMachine(nil), nil)
	_, _, err := svc.Process(context.Background(), "s1", models.Message{UserID: "u1", Content: "hi"})
	if err == nil {
		t.Error("Process() succeeded with failing store")
	}
}
