package telegram

import (
	"context"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

// defaultUpdatesLimit is the getUpdates limit used when none is given.
const defaultUpdatesLimit = 100

// UpdatesRequest holds the getUpdates parameters. All three are always sent.
type UpdatesRequest struct {
	Offset  int
	Limit   int // 0 means 100
	Timeout int // long-polling timeout in seconds
}

// GetMe checks the bot token. It is a parameterless GET.
func (c *Client) GetMe(ctx context.Context) (*Result, error) {
	return c.Invoke(ctx, http.MethodGet, "getMe", nil)
}

// SendMessage sends text to chat, which is either an alias from the chat
// table or a literal chat ID. Text longer than MaxMessageLength code points
// is cut silently. An empty parseMode means DefaultParseMode; extra is
// merged last and may override any field.
func (c *Client) SendMessage(ctx context.Context, chat, text, parseMode string, extra Params) (*Result, error) {
	params, ok := c.messageParams(chat, text)
	if !ok {
		res := invalidParams()
		c.setLast(res)
		return res, nil
	}

	if parseMode == "" {
		parseMode = DefaultParseMode
	}
	params["parse_mode"] = parseMode
	maps.Copy(params, extra)

	return c.Invoke(ctx, http.MethodPost, "sendMessage", params)
}

// SendMessageWith is SendMessage with caller-supplied fields in place of
// the parse mode. No parse_mode is added unless overrides carries one.
func (c *Client) SendMessageWith(ctx context.Context, chat, text string, overrides Params) (*Result, error) {
	params, ok := c.messageParams(chat, text)
	if !ok {
		res := invalidParams()
		c.setLast(res)
		return res, nil
	}
	maps.Copy(params, overrides)

	return c.Invoke(ctx, http.MethodPost, "sendMessage", params)
}

func (c *Client) messageParams(chat, text string) (Params, bool) {
	if chat == "" || text == "" {
		return nil, false
	}
	return Params{
		"chat_id": c.resolveChat(chat),
		"text":    truncate(text, MaxMessageLength),
	}, true
}

// GetUpdates fetches pending updates. Offset bookkeeping is the caller's job.
func (c *Client) GetUpdates(ctx context.Context, req UpdatesRequest) (*Result, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultUpdatesLimit
	}
	return c.Invoke(ctx, http.MethodPost, "getUpdates", Params{
		"offset":  req.Offset,
		"limit":   limit,
		"timeout": req.Timeout,
	})
}

// Call invokes any Bot API method by name and adds it to the allow-list.
//
// args is either a single Params (or map[string]any) or a list of values
// collapsed into one map: maps are merged in order, other values are keyed
// by their position. A "method" entry of "GET" switches the verb from POST;
// it is removed before sending.
func (c *Client) Call(ctx context.Context, method string, args ...any) (*Result, error) {
	c.Allow(method)

	params := collapseArgs(args)
	verb := http.MethodPost
	if v, ok := params["method"]; ok {
		if s, ok := v.(string); ok && strings.EqualFold(s, http.MethodGet) {
			verb = http.MethodGet
		}
		delete(params, "method")
	}

	return c.Invoke(ctx, verb, method, params)
}

// collapseArgs merges call arguments into a fresh map so the caller's maps
// are never modified.
func collapseArgs(args []any) Params {
	params := Params{}
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case Params:
			maps.Copy(params, v)
		case map[string]any:
			maps.Copy(params, v)
		default:
			params[strconv.Itoa(i)] = v
		}
	}
	return params
}

// truncate cuts s to at most n code points.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
