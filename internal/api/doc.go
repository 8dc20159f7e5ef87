// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat backend.
//
// The backend is a black box to this client: retrieval, generation, and
// citation extraction all happen server-side. This package covers the
// request/response surface only:
//
//   - POST /chat                          send a turn (creates conversations)
//   - GET  /conversations                 list conversations
//   - GET  /conversations/{id}/history    fetch persisted history
//   - POST /upload                        upload a source PDF (multipart)
//   - GET  /documents/{docId}/pdf         download a source PDF
//   - GET  /health                        backend health probe
//
// The live turn stream (GET /chat/{id}/stream) is handled by the sse
// package; StreamURL builds its endpoint.
//
// Non-2xx responses are returned as *ClientError with a categorized
// ErrorType. There is no automatic retry at this layer; retry policy
// belongs to the streaming transport alone.
package api
