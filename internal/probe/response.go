package probe

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	maxBodyReadSize    = 1024 * 1024
	maxLoggedBodyBytes = 256
)

// ErrInvalidJSON is wrapped by the error returned when a body is not JSON.
var ErrInvalidJSON = errors.New("invalid JSON body")

// Response is a health endpoint reply with its body parsed once.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	JSON       gjson.Result
}

// ContentType returns the Content-Type header, or "" when absent.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// readResponse consumes and closes resp.Body.
func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	res := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if !gjson.ValidBytes(body) {
		return res, fmt.Errorf("%w (status %d): %q", ErrInvalidJSON, resp.StatusCode, snippet(body))
	}
	res.JSON = gjson.ParseBytes(body)
	return res, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxLoggedBodyBytes {
		s = s[:maxLoggedBodyBytes] + "..."
	}
	return s
}
