package httpclient

import (
	"io"
	"net/url"
)

// Request is one outbound call. Path is joined onto Config.BaseURL unless it
// is an absolute URL. Body may be an io.Reader, []byte, string, url.Values
// (sent form encoded) or any value, which is sent as JSON.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
	// Auth replaces the client-wide auth for this call.
	Auth *AuthConfig
}

// Form builds a url.Values body from alternating keys and values.
func Form(kv ...string) url.Values {
	v := make(url.Values, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v.Add(kv[i], kv[i+1])
	}
	return v
}

// Response is a fully read reply. Headers keep the first value of each key.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r *Response) IsSuccess() bool { return r.StatusCode/100 == 2 }

func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// StreamResponse is a reply whose body is still being received.
type StreamResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       io.ReadCloser
}

// Close releases the connection.
func (r *StreamResponse) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
