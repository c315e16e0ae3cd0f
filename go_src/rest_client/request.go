package rest_client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ValidMethods is the allow-list checked before any request is dispatched.
var ValidMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
	http.MethodHead, http.MethodOptions, http.MethodConnect, http.MethodTrace,
}

// Request is a declarative description of one HTTP call.
// At most one of JSON, Form or Files should be set; Files may be combined with Form fields.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  url.Values // query string
	JSON    interface{}
	Form    url.Values
	Files   map[string]string // multipart field name -> local file path
	Timeout time.Duration     // zero uses the executor default
}

// ValidateMethod checks the method name against ValidMethods, case-insensitively.
func ValidateMethod(method string) error {
	m := strings.ToUpper(method)
	for _, valid := range ValidMethods {
		if m == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid method: %s", method)
}

// Response holds the raw body plus its decoded form.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Data is the parsed JSON value, or the body as a string when it is not JSON.
	Data   interface{}
	IsJSON bool
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if !r.IsJSON {
		return fmt.Errorf("response body is not JSON: %.100s", string(r.Body))
	}
	return json.Unmarshal(r.Body, v)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}
