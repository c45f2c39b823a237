package api

import (
	"fmt"
	"net/http"
	"time"
)

// VersionInfo describes a running action proxy.
type VersionInfo struct {
	ServerVersion string   `json:"serverVersion"`
	ApiVersion    string   `json:"apiVersion"`
	Actions       []string `json:"actions"`
}

// Activation carries the metadata sent with a /run request.
// An empty ActivationID is replaced with a random one.
type Activation struct {
	ActivationID string
	ActionName   string
	Namespace    string
	Deadline     time.Time
}

type runRequest struct {
	Value        rawJSON `json:"value"`
	ActivationID string  `json:"activation_id"`
	ActionName   string  `json:"action_name,omitempty"`
	Namespace    string  `json:"namespace,omitempty"`
	Deadline     string  `json:"deadline,omitempty"`
}

type initRequest struct {
	Value struct {
		Main string `json:"main"`
	} `json:"value"`
}

// ResponseError is returned when the proxy answers with a non-2xx status.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if retried.
func (e *ResponseError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
