package storeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Response is the normalized shape of every backend reply.
type Response struct {
	OK     bool
	Status int
	Data   json.RawMessage
}

func newResponse(status int, raw []byte) *Response {
	resp := &Response{
		OK:     status >= 200 && status < 300,
		Status: status,
	}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		resp.Data = json.RawMessage("null")
	case json.Valid(trimmed):
		resp.Data = json.RawMessage(trimmed)
	default:
		quoted, _ := json.Marshal(string(raw))
		resp.Data = json.RawMessage(quoted)
	}
	return resp
}

// JSON decodes Data into dest.
func (r *Response) JSON(dest any) error {
	if r == nil || len(r.Data) == 0 {
		return errors.New("empty response")
	}
	return json.Unmarshal(r.Data, dest)
}

// Text returns the body as text. String payloads are unquoted.
func (r *Response) Text() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

// Failed reports whether the call failed at the transport or HTTP level, or
// the body carries "success": false.
func (r *Response) Failed() bool {
	if r == nil || !r.OK {
		return true
	}
	var envelope struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(r.Data, &envelope); err == nil && envelope.Success != nil && !*envelope.Success {
		return true
	}
	return false
}

// Message extracts a human message from "message" or "error" fields.
func (r *Response) Message() string {
	if r == nil {
		return ""
	}
	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(r.Data, &envelope); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(envelope.Message); msg != "" {
		return msg
	}
	var errText string
	if err := json.Unmarshal(envelope.Error, &errText); err == nil {
		return strings.TrimSpace(errText)
	}
	return ""
}
