package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/studiosync/internal/common"
)

const maxRequestSize = 32 << 20

// request is a decoded call. Clients send either a form (login) or a JSON
// object; both carry the version and the session token as plain fields.
type request struct {
	Query   string
	Token   string
	Version string

	form url.Values
	raw  []byte
	json map[string]json.RawMessage
}

func parseRequest(c *gin.Context) (*request, error) {
	req := &request{Query: c.Request.URL.RawQuery}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)

	switch c.ContentType() {
	case gin.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		req.form = c.Request.PostForm
	default:
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		req.raw = raw
		req.json = map[string]json.RawMessage{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &req.json); err != nil {
				return nil, fmt.Errorf("invalid json: %w", err)
			}
		}
	}

	req.Token = req.field(common.TokenField)
	req.Version = req.field(common.VersionField)
	return req, nil
}

// field returns a string field from either encoding. Non-string JSON
// values read as empty.
func (r *request) field(name string) string {
	if r.form != nil {
		return r.form.Get(name)
	}
	var s string
	if v, ok := r.json[name]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

// decode unmarshals the JSON body into v.
func (r *request) decode(v any) error {
	if r.raw == nil {
		return fmt.Errorf("expected a json body")
	}
	return json.Unmarshal(r.raw, v)
}

// reply is the envelope every response is wrapped in.
type reply struct {
	Query    string `json:"query"`
	Message  string `json:"message"`
	Success  bool   `json:"success"`
	Accepted bool   `json:"accepted"`
	Token    string `json:"token,omitempty"`
	Content  any    `json:"content,omitempty"`
}
