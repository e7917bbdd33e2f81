// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the chatsync client configuration.
//
// Configuration is loaded from a single file specified by:
//   - CHATSYNC_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Files ending in .json
// or .jsonc are read as JSON with comments and trailing commas; every
// other file is read as YAML. Both forms share one schema.
//
// The file may contain environment-specific sections (development,
// staging, production) whose non-zero values override the base values
// when the environment matches. Address fields support ${VAR} and
// ${VAR:-default} expansion so one file can serve several hosts.
//
// The API bearer token is never stored in the file. server.api_token_env
// names the environment variable that holds it.
package config
