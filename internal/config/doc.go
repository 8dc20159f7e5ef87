// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Configuration lives in a single TOML file (~/.docchat/config.toml, or the
// path named by $DOCCHAT_CONFIG). Defaults cover every field so a missing
// file is not an error. DOCCHAT_* environment variables override file
// values; out-of-range numerics are clamped rather than rejected.
//
// A Watcher built on fsnotify reloads the file live, so server URL and
// theme changes apply without restarting the client.
package config
