package watchlist

import (
	"fmt"
)

// NetworkError is returned when the API could not be reached at all
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("unable to reach API url:%s err:%v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is returned when the API responded with non success status
// or with a body which could not be decoded
type APIError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API responded with status %d url:%s err:%v", e.StatusCode, e.URL, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
