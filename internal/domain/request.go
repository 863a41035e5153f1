package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the operation a data-provider client asks for.
type Action string

const (
	ActionSubscribe   Action = "SUBSCRIBE"
	ActionUnsubscribe Action = "UNSUBSCRIBE"
	ActionPolling     Action = "POLLING"
)

// IsUnsubscribe reports whether the action is UNSUBSCRIBE, ignoring case.
func (a Action) IsUnsubscribe() bool {
	return strings.EqualFold(string(a), string(ActionUnsubscribe))
}

// SubscriptionRequest is a client's request to subscribe to the data feed behind a widget.
// DataProviderConfiguration is rewritten in place when the request is authorized.
type SubscriptionRequest struct {
	Action                    Action                 `json:"action"`
	Topic                     string                 `json:"topic,omitempty"`
	ProviderName              string                 `json:"providerName,omitempty"`
	DashboardID               string                 `json:"dashboardId" validate:"required"`
	Username                  string                 `json:"username" validate:"required"`
	WidgetName                string                 `json:"widgetName" validate:"required"`
	DataProviderConfiguration *ProviderConfiguration `json:"dataProviderConfiguration,omitempty"`
}

// ProviderConfiguration is the caller-owned data provider configuration.
// Only queryData is interpreted; every other property round-trips untouched.
type ProviderConfiguration struct {
	QueryData *QueryData
	extra     map[string]json.RawMessage
}

const queryDataKey = "queryData"

// UnmarshalJSON implements json.Unmarshaler.
func (c *ProviderConfiguration) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.QueryData = nil
	if qd, ok := raw[queryDataKey]; ok {
		delete(raw, queryDataKey)
		if !isJSONNull(qd) {
			c.QueryData = &QueryData{}
			if err := json.Unmarshal(qd, c.QueryData); err != nil {
				return fmt.Errorf("decoding %s: %w", queryDataKey, err)
			}
		}
	}
	c.extra = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c ProviderConfiguration) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	if c.QueryData != nil {
		out[queryDataKey] = c.QueryData
	}
	return json.Marshal(out)
}

// Property returns a raw property other than queryData.
func (c *ProviderConfiguration) Property(name string) (json.RawMessage, bool) {
	v, ok := c.extra[name]
	return v, ok
}

// QueryData selects a trusted query and carries the values to substitute into it.
// Query is written by the server after assembly.
type QueryData struct {
	QueryName   *string
	QueryValues *QueryValues
	Query       string
	extra       map[string]json.RawMessage
}

const (
	queryNameKey   = "queryName"
	queryValuesKey = "queryValues"
	queryKey       = "query"
)

// UnmarshalJSON implements json.Unmarshaler.
func (q *QueryData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = QueryData{}
	if v, ok := raw[queryNameKey]; ok {
		delete(raw, queryNameKey)
		if !isJSONNull(v) {
			name, err := scalarString(v)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", queryNameKey, err)
			}
			q.QueryName = &name
		}
	}
	if v, ok := raw[queryValuesKey]; ok {
		delete(raw, queryValuesKey)
		if !isJSONNull(v) {
			q.QueryValues = &QueryValues{}
			if err := json.Unmarshal(v, q.QueryValues); err != nil {
				return fmt.Errorf("decoding %s: %w", queryValuesKey, err)
			}
		}
	}
	// A query sent by the caller is never trusted; it is overwritten on assembly.
	delete(raw, queryKey)
	q.extra = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q QueryData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.extra)+3)
	for k, v := range q.extra {
		out[k] = v
	}
	if q.QueryName != nil {
		out[queryNameKey] = *q.QueryName
	}
	if q.QueryValues != nil {
		out[queryValuesKey] = q.QueryValues
	}
	if q.Query != "" {
		out[queryKey] = q.Query
	}
	return json.Marshal(out)
}

// QueryValue is one caller-supplied substitution. Value is nil when the caller sent null
// or a non-scalar.
type QueryValue struct {
	Key   string
	Value *string
	raw   json.RawMessage
}

// QueryValues keeps substitutions in the order the caller sent them.
type QueryValues struct {
	Entries []QueryValue
}

// UnmarshalJSON implements json.Unmarshaler. Key order is preserved.
func (v *QueryValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	v.Entries = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		entry := QueryValue{Key: key, raw: raw}
		if s, err := scalarString(raw); err == nil {
			entry.Value = &s
		}
		v.Entries = append(v.Entries, entry)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON implements json.Marshaler.
func (v QueryValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range v.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		switch {
		case e.raw != nil:
			buf.Write(e.raw)
		case e.Value != nil:
			val, err := json.Marshal(*e.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		default:
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// scalarString renders a JSON string, number or boolean as text.
func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[', 'n':
		return "", fmt.Errorf("not a scalar: %s", trimmed)
	default:
		return string(trimmed), nil
	}
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
