// Package telegram is a thin client for the Telegram Bot HTTP API.
//
// A Client builds the URL <endpoint>/bot<token>/<method>, serializes a flat
// parameter map to JSON, performs a single HTTP request and folds the
// outcome into a Result:
//
//   - transport failures become status 500 with a "<error> - <url>" body
//   - API failures ({"ok": false}) keep the decoded body and set the error flag
//   - in async (fire-and-forget) mode the response is never inspected
//
// Only an unknown method name is reported as a Go error. Everything else is
// read from the returned Result with HasError, StatusCode and Result.
//
// Methods outside the built-in set (getMe, sendMessage, getUpdates) are
// reached through Call, which adds the name to the client's allow-list.
//
// No external Telegram library is used: the client talks to the Bot API
// via raw net/http + encoding/json.
package telegram
