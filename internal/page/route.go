package page

import (
	"fmt"
	"net/url"
	"strings"
)

// RoutePath 是对话页绑定的路径前缀。
const RoutePath = "/prompt-flow-chat"

// Route 是 /prompt-flow-chat[/:chatId][?content=...] 解析后的结果。
type Route struct {
	ChatID string
	// Search 是原始查询串（含 "?"），没有查询时为空。
	Search string
	Query  url.Values
}

// Content 返回 content 查询参数。
func (r Route) Content() (string, bool) {
	if r.Query == nil {
		return "", false
	}
	vals, ok := r.Query["content"]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// ParseRoute 解析页面位置。不带前导斜杠的输入被视为 chat id。
func ParseRoute(location string) (Route, error) {
	location = strings.TrimSpace(location)
	path, rawQuery, _ := strings.Cut(location, "?")
	if i := strings.IndexByte(rawQuery, '#'); i >= 0 {
		rawQuery = rawQuery[:i]
	}
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}

	var r Route
	if rawQuery != "" {
		q, err := url.ParseQuery(rawQuery)
		if err != nil {
			return Route{}, fmt.Errorf("parse query %q: %w", rawQuery, err)
		}
		r.Search = "?" + rawQuery
		r.Query = q
	}

	switch {
	case path == "" || path == "/" || path == RoutePath || path == RoutePath+"/":
		return r, nil
	case strings.HasPrefix(path, RoutePath+"/"):
		rest := strings.TrimSuffix(strings.TrimPrefix(path, RoutePath+"/"), "/")
		if strings.Contains(rest, "/") {
			return Route{}, fmt.Errorf("unexpected path %q", path)
		}
		id, err := url.PathUnescape(rest)
		if err != nil {
			return Route{}, fmt.Errorf("chat id %q: %w", rest, err)
		}
		r.ChatID = id
		return r, nil
	case !strings.HasPrefix(path, "/") && !strings.Contains(path, "/"):
		r.ChatID = path
		return r, nil
	default:
		return Route{}, fmt.Errorf("unexpected path %q", path)
	}
}

// String 还原为页面位置。
func (r Route) String() string {
	path := RoutePath
	if r.ChatID != "" {
		path += "/" + url.PathEscape(r.ChatID)
	}
	return path + r.Search
}
