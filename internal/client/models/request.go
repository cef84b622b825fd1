package models

import (
	"encoding/json"
)

// Request is one queued call to the sync server.
type Request struct {
	Query       string
	Body        []byte
	ContentType string
	URL         string
}

// Response is the envelope every server reply is decoded into.
type Response struct {
	// Request is the query of the call this reply answers. Query is what
	// the server says it is and stays empty for a body that is not JSON.
	Request  string          `json:"-"`
	Query    string          `json:"query"`
	Message  string          `json:"message"`
	Success  bool            `json:"success"`
	Accepted bool            `json:"accepted"`
	Token    string          `json:"token,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// PingContent is the content of a ping reply.
type PingContent struct {
	Version string `json:"version"`
}

// DecodeResponse parses a server reply. A body that is not a JSON object
// becomes a non-accepted response without a query, carrying the raw text
// as its message.
func DecodeResponse(query string, body []byte) Response {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{Request: query, Message: string(body), Accepted: false}
	}
	resp.Request = query
	if resp.Query == "" {
		resp.Query = query
	}
	return resp
}

// Answers reports whether r is the reply to a call of the given query:
// either the server named it so, or the body could not be parsed and the
// call was of that query.
func (r Response) Answers(query string) bool {
	if r.Query != "" {
		return r.Query == query
	}
	return r.Request == query
}
