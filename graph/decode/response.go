package decode

import (
	"github.com/nkcr/fbgraph/graph/types"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Response defines what decoders expect from an HTTP response.
type Response interface {
	AsJSONObject() (gjson.Result, error)
	Meta() types.ResponseMeta
}

// NewResponse returns a response backed by an already read body.
func NewResponse(body []byte, meta types.ResponseMeta) Response {
	return bytesResponse{
		body: body,
		meta: meta,
	}
}

// bytesResponse implements decode.Response
type bytesResponse struct {
	body []byte
	meta types.ResponseMeta
}

// AsJSONObject implements decode.Response
func (r bytesResponse) AsJSONObject() (gjson.Result, error) {
	if !gjson.ValidBytes(r.body) {
		return gjson.Result{}, errors.Errorf("invalid JSON: %.64q", r.body)
	}

	json := gjson.ParseBytes(r.body)
	if !json.IsObject() {
		return gjson.Result{}, errors.Errorf("expected a JSON object, got %.64s", json.Raw)
	}

	return json, nil
}

// Meta implements decode.Response
func (r bytesResponse) Meta() types.ResponseMeta {
	return r.meta
}
