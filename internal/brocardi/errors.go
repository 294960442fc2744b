package brocardi

import "errors"

// Connectivity errors returned by the client.
// Specific error types let callers handle failure modes appropriately
// (retry on timeout, fail fast on a bad base URL).
var (
	// ErrInvalidBaseURL is returned when the base URL cannot be parsed or
	// uses a scheme other than http/https.
	ErrInvalidBaseURL = errors.New("invalid base URL: expected http(s) URL")

	// ErrSiteUnreachable is returned when the site root cannot be reached.
	ErrSiteUnreachable = errors.New("cannot reach the Brocardi website")

	// ErrSiteTimeout is returned when the reachability check times out.
	ErrSiteTimeout = errors.New("timeout reaching the Brocardi website")

	// ErrSiteBadResponse is returned when the site root answers with an
	// unexpected status code.
	ErrSiteBadResponse = errors.New("unexpected response from the Brocardi website")
)

// SiteStatus represents the result of checking site reachability.
type SiteStatus int

const (
	// SiteStatusOK indicates the site root answered with a success status.
	SiteStatusOK SiteStatus = iota

	// SiteStatusBadResponse indicates the site answered with a non-2xx
	// status. The site may be blocking the client or under maintenance.
	SiteStatusBadResponse

	// SiteStatusUnreachable indicates no connection could be established.
	SiteStatusUnreachable

	// SiteStatusTimeout indicates the check timed out.
	SiteStatusTimeout
)

// String returns a human-readable description of the site status.
func (s SiteStatus) String() string {
	switch s {
	case SiteStatusOK:
		return "OK"
	case SiteStatusBadResponse:
		return "bad response"
	case SiteStatusUnreachable:
		return "unreachable"
	case SiteStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the appropriate error for this status, or nil if OK.
func (s SiteStatus) Error() error {
	switch s {
	case SiteStatusOK:
		return nil
	case SiteStatusBadResponse:
		return ErrSiteBadResponse
	case SiteStatusUnreachable:
		return ErrSiteUnreachable
	case SiteStatusTimeout:
		return ErrSiteTimeout
	default:
		return errors.New("unknown site status")
	}
}
