// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/morganforge/docchat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeBadRequest
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "backend is unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
)

// IsUnreachable checks if an error indicates the backend cannot be reached.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8000",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the docchat backend.
//
// The Client is safe for concurrent use. History fetches and sends may run
// concurrently with an open stream; they touch disjoint server state.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// BaseURL returns the configured backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.config.BaseURL, "/")
}

// StreamURL returns the live turn stream endpoint for a conversation.
func (c *Client) StreamURL(conversationID string) string {
	return c.BaseURL() + "/chat/" + conversationID + "/stream"
}

// DocumentPDFURL returns the source PDF endpoint for a document.
func (c *Client) DocumentPDFURL(docID string) string {
	return c.BaseURL() + "/documents/" + docID + "/pdf"
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// SendTurn posts a user turn. An empty conversationID asks the backend to
// create a conversation; the receipt carries the id to select. The user
// message is persisted server-side before generation begins, so no receipt
// means nothing was appended anywhere.
func (c *Client) SendTurn(ctx context.Context, conversationID, message string) (*TurnReceipt, error) {
	reqBody := chatRequest{Message: message}
	if conversationID != "" {
		reqBody.ConversationID = &conversationID
	}

	var receipt TurnReceipt
	if err := c.postJSON(ctx, "/chat", reqBody, &receipt); err != nil {
		return nil, err
	}
	if receipt.ConversationID == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "chat response missing conversation_id"}
	}
	return &receipt, nil
}

// ListConversations retrieves all known conversations.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var resp conversationsResponse
	if err := c.getJSON(ctx, "/conversations", &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetHistory retrieves the ordered (oldest-first) persisted messages for a
// conversation.
func (c *Client) GetHistory(ctx context.Context, conversationID string) ([]model.Message, error) {
	var resp historyResponse
	if err := c.getJSON(ctx, "/conversations/"+conversationID+"/history", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// UploadPDF uploads a source PDF for ingestion. Only .pdf files are
// accepted; the backend queues ingestion and responds with a job receipt.
func (c *Client) UploadPDF(ctx context.Context, path string) (*UploadReceipt, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, &ClientError{Type: ErrTypeBadRequest, Message: "only PDF uploads are supported"}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeBadRequest, Message: "cannot open file", Cause: err}
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build multipart body", Cause: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to read file", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to finalize multipart body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+"/upload", &body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError("upload failed", resp)
	}

	var receipt UploadReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode upload response", Cause: err}
	}
	return &receipt, nil
}

// FetchDocumentPDF downloads the source PDF for a document into destDir and
// returns the written file path. Used to hand the file to the platform
// viewer when a citation is opened.
func (c *Client) FetchDocumentPDF(ctx context.Context, docID, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DocumentPDFURL(docID), nil)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", responseError("document fetch failed", resp)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "cannot create destination directory", Cause: err}
	}
	destPath := filepath.Join(destDir, docID+".pdf")

	out, err := os.Create(destPath)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "cannot create destination file", Cause: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(destPath)
		return "", &ClientError{Type: ErrTypeUnknown, Message: "download interrupted", Cause: err}
	}
	return destPath, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// CheckHealth probes the backend health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.getJSON(ctx, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// getJSON performs a GET request and decodes the JSON response into result.
func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL()+path, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	return c.doJSON(req, result)
}

// postJSON performs a POST request with a JSON body and decodes the response.
func (c *Client) postJSON(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+path, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeUnreachable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, result)
}

// doJSON executes a request, maps failure classes onto the error taxonomy,
// and decodes a successful JSON response into result.
func (c *Client) doJSON(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError("request failed", resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
		}
	}
	return nil
}

// wrapTransportError maps a transport failure to a categorized error.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return &ClientError{Type: ErrTypeUnreachable, Message: "backend is unreachable", Cause: err}
}

// responseError builds a ClientError from a non-2xx response, preferring the
// backend's detail message when one is present.
func responseError(prefix string, resp *http.Response) error {
	errType := ErrTypeInvalidResponse
	if resp.StatusCode == http.StatusBadRequest {
		errType = ErrTypeBadRequest
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var detail apiError
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return &ClientError{Type: errType, Message: detail.Detail}
	}
	return &ClientError{
		Type:    errType,
		Message: fmt.Sprintf("%s: %s", prefix, resp.Status),
	}
}
