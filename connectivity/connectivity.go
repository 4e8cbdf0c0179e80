// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package connectivity

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	log "github.com/hpe-storage/fc-zone-libs/logger"
)

const (
	defaultTimeout = time.Duration(60) * time.Second
)

// Request encapsulates a request to the Do* family of functions
type Request struct {
	// Action to take, ie: GET, POST, PUT, PATCH, DELETE
	Action string
	// Path is the URI
	Path string
	// Header to include one or more headers in the request
	Header map[string]string
	// Payload to send (may be nil)
	Payload interface{}
	// Response to marshal into (may be nil)
	Response interface{}
	// ResponseError to marshal error responses into (may be nil)
	ResponseError interface{}
	// ResponseHeaders is populated with the response headers after the call; session oriented
	// endpoints hand tokens back this way
	ResponseHeaders http.Header
}

// Client is a simple JSON-over-HTTP client bound to one base URL
type Client struct {
	*http.Client
	pathPrefix string
}

// NewHTTPClient returns a client that communicates with the given base URL using the
// default timeout
func NewHTTPClient(url string) *Client {
	return NewHTTPClientWithTimeout(url, defaultTimeout)
}

// NewHTTPClientWithTimeout returns a client with a caller supplied timeout.  TLS verification
// is skipped; fabric switches ship self-signed management certificates.
func NewHTTPClientWithTimeout(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{&http.Client{Timeout: timeout, Transport: transport}, url}
}

// DoJSON makes an HTTP request with a JSON payload and unmarshals the JSON response.  The
// response body is decoded into r.Response on 2xx and into r.ResponseError otherwise.
func (client *Client) DoJSON(r *Request) (int, error) {
	log.Tracef(">>>>> DoJSON called, action=%v path=%v", r.Action, r.Path)
	defer log.Trace("<<<<< DoJSON")

	var body io.Reader
	if r.Payload != nil {
		buf, err := json.Marshal(r.Payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(buf)
	}

	request, err := http.NewRequest(r.Action, client.pathPrefix+r.Path, body)
	if err != nil {
		return 0, err
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range r.Header {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	r.ResponseHeaders = response.Header

	data, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, err
	}

	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		if r.Response != nil && len(data) > 0 {
			if err := json.Unmarshal(data, r.Response); err != nil {
				return response.StatusCode, err
			}
		}
		return response.StatusCode, nil
	}

	if r.ResponseError != nil && len(data) > 0 {
		// Error body may not be JSON at all; a decode failure still surfaces the status code
		json.Unmarshal(data, r.ResponseError)
	}
	return response.StatusCode, fmt.Errorf("request %s %s failed with status %d", r.Action, r.Path, response.StatusCode)
}
