// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse implements the live turn stream client.
//
// A Session attaches to one conversation's server-sent-event endpoint and
// dispatches decoded events, in arrival order, to a single handler. The
// session owns the connection lifecycle: it reconnects on failure at a
// fixed pace until the stream ends with a done event, the retry budget is
// exhausted, or Close is called. Close is idempotent and always wins over
// in-flight traffic.
//
// Only the wire framing lives here. Event payload semantics are defined in
// the model package; what the events mean for application state is the
// controller's business.
package sse
