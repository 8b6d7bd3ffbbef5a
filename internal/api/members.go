package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
)

// ClassMembers lists the members of the class for a Gregorian year.
//
// A rejected request returns *FetchError with the server's "error" or
// "message" text. A successful body may be a bare array, {"data": [...]},
// {"data": {"students": [...]}} or {"students": [...]}; any other shape,
// including malformed JSON, yields an empty list and no error.
func (c *Client) ClassMembers(ctx context.Context, year, token string) ([]Member, error) {
	resp, err := c.get(ctx, opClassMembers, "/class/"+url.PathEscape(year), token)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newFetchError(resp.StatusCode, resp.Body)
	}

	return decodeMembers(resp.Body), nil
}

// decodeMembers normalises the member list shapes the server is known to use.
func decodeMembers(body []byte) []Member {
	raw := json.RawMessage(body)

	var envelope struct {
		Data     json.RawMessage `json:"data"`
		Students json.RawMessage `json:"students"`
	}
	if isJSONObject(raw) && json.Unmarshal(raw, &envelope) == nil {
		switch {
		case len(envelope.Data) > 0 && !isJSONNull(envelope.Data):
			raw = envelope.Data
		case len(envelope.Students) > 0:
			raw = envelope.Students
		}
	}

	if isJSONObject(raw) {
		var nested struct {
			Students json.RawMessage `json:"students"`
		}
		if json.Unmarshal(raw, &nested) != nil {
			return []Member{}
		}
		raw = nested.Students
	}

	var items []json.RawMessage
	if !isJSONArray(raw) || json.Unmarshal(raw, &items) != nil {
		return []Member{}
	}

	members := make([]Member, 0, len(items))
	for _, item := range items {
		var m Member
		if !isJSONObject(item) || json.Unmarshal(item, &m) != nil {
			continue
		}
		members = append(members, m)
	}
	return members
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
