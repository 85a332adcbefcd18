package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
)

// MessageServiceName is the fully-qualified name of the message service.
const MessageServiceName = "powersplit.v1.MessageService"

const (
	// HandleMessageProcedure is the full path of MessageService.HandleMessage.
	HandleMessageProcedure = "/" + MessageServiceName + "/HandleMessage"
	// GetConversationProcedure is the full path of MessageService.GetConversation.
	GetConversationProcedure = "/" + MessageServiceName + "/GetConversation"
)

// HandleMessageRequest is one inbound chat message forwarded by the gateway.
type HandleMessageRequest struct {
	MessageID   string    `json:"message_id,omitempty"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type,omitempty"`
	SenderPhone string    `json:"sender_phone,omitempty"`
	SenderName  string    `json:"sender_name,omitempty"`
	Media       []byte    `json:"media,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (r *HandleMessageRequest) GetUserID() string { return r.UserID }

// HandleMessageResponse is the single reply to an inbound message.
type HandleMessageResponse struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	CurrentStep string `json:"current_step"`
}

// GetConversationRequest identifies a conversation session.
type GetConversationRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (r *GetConversationRequest) GetUserID() string { return r.UserID }

// GetConversationResponse describes where a session is in the dialogue.
type GetConversationResponse struct {
	UserID          string    `json:"user_id"`
	SessionID       string    `json:"session_id"`
	CurrentStep     string    `json:"current_step"`
	StepDescription string    `json:"step_description"`
	RetryCount      int       `json:"retry_count"`
	MessageCount    int       `json:"message_count"`
	BillID          string    `json:"bill_id,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MessageServiceHandler is implemented by MessageService.
type MessageServiceHandler interface {
	HandleMessage(context.Context, *connect.Request[HandleMessageRequest]) (*connect.Response[HandleMessageResponse], error)
	GetConversation(context.Context, *connect.Request[GetConversationRequest]) (*connect.Response[GetConversationResponse], error)
}

// NewMessageServiceHandler builds an HTTP handler for the service. It returns
// the path on which to mount the handler and the handler itself.
func NewMessageServiceHandler(svc MessageServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	handleMessage := connect.NewUnaryHandler(HandleMessageProcedure, svc.HandleMessage, opts...)
	getConversation := connect.NewUnaryHandler(GetConversationProcedure, svc.GetConversation, opts...)

	return "/" + MessageServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case HandleMessageProcedure:
			handleMessage.ServeHTTP(w, r)
		case GetConversationProcedure:
			getConversation.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// MessageServiceClient calls the message service over Connect with the JSON codec.
type MessageServiceClient struct {
	handleMessage   *connect.Client[HandleMessageRequest, HandleMessageResponse]
	getConversation *connect.Client[GetConversationRequest, GetConversationResponse]
}

// NewMessageServiceClient creates a client for the service at baseURL.
func NewMessageServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MessageServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &MessageServiceClient{
		handleMessage:   connect.NewClient[HandleMessageRequest, HandleMessageResponse](httpClient, baseURL+HandleMessageProcedure, opts...),
		getConversation: connect.NewClient[GetConversationRequest, GetConversationResponse](httpClient, baseURL+GetConversationProcedure, opts...),
	}
}

func (c *MessageServiceClient) HandleMessage(ctx context.Context, req *connect.Request[HandleMessageRequest]) (*connect.Response[HandleMessageResponse], error) {
	return c.handleMessage.CallUnary(ctx, req)
}

func (c *MessageServiceClient) GetConversation(ctx context.Context, req *connect.Request[GetConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	return c.getConversation.CallUnary(ctx, req)
}
