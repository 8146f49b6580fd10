package scryfall

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// NotFoundError reports a 404 from the API. Lookup helpers translate it
// to an absent result; it only surfaces from endpoints where a missing
// resource is unexpected.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scryfall resource not found: %s", e.URL)
}

// IsNotFound reports whether err carries a *NotFoundError anywhere in
// its chain.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// APIError is a non-2xx response after retries were exhausted. Details
// carries the server's error message when the body was parseable.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("scryfall API returned status %d: %s", e.Status, e.Details)
	}
	return fmt.Sprintf("scryfall API returned status %d", e.Status)
}

// checkStatus maps a response status to the error taxonomy: nil for
// 200, *NotFoundError for 404, *APIError for everything else.
func checkStatus(resp *http.Response, reqURL string) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &NotFoundError{URL: reqURL}
	default:
		return errorFromResponse(resp)
	}
}

// errorFromResponse drains the body and builds an APIError for a failed
// response.
func errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(body) > 0 {
		var parsed APIError
		if json.Unmarshal(body, &parsed) == nil && parsed.Details != "" {
			apiErr.Code = parsed.Code
			apiErr.Details = parsed.Details
		}
	}

	return apiErr
}
