package remote

import (
	"encoding/json"
	"net/url"

	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/common"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// outbound is a queued call. The body is materialised at dispatch time so
// that it carries the token current at that moment.
type outbound struct {
	query string
	json  map[string]any
	form  url.Values

	// attempt is set on pings: the handshake attempt they belong to.
	attempt uint64
}

func build(opts Options, o outbound, token string) (models.Request, error) {
	req := models.Request{
		Query: o.query,
		URL:   opts.scheme() + opts.Address + "?" + o.query,
	}

	if o.form != nil {
		form := url.Values{}
		for k, v := range o.form {
			form[k] = append([]string(nil), v...)
		}
		form.Set(common.VersionField, opts.Version)
		if token != "" {
			form.Set(common.TokenField, token)
		}
		req.ContentType = contentTypeForm
		req.Body = []byte(form.Encode())
		return req, nil
	}

	body := make(map[string]any, len(o.json)+2)
	for k, v := range o.json {
		body[k] = v
	}
	body[common.VersionField] = opts.Version
	if token != "" {
		body[common.TokenField] = token
	}
	b, err := json.Marshal(body)
	if err != nil {
		return req, err
	}
	req.ContentType = contentTypeJSON
	req.Body = b
	return req, nil
}
