package types

import "github.com/m-mizutani/goerr/v2"

// Error kinds of the file resolution and conversion pipeline. An error carries at most
// one of these tags; untagged errors are local failures that never reached the backend.
var (
	// ErrTagUpstreamUnavailable marks transport failures and non-2xx responses from the storage backend.
	ErrTagUpstreamUnavailable = goerr.NewTag("upstream_unavailable")

	// ErrTagMalformedResponse marks a search response body that is not well-formed XML.
	ErrTagMalformedResponse = goerr.NewTag("malformed_upstream_response")

	// ErrTagNotFound marks a search response without the required href or displayname.
	ErrTagNotFound = goerr.NewTag("not_found")

	// ErrTagDecodeFailure marks bytes that could not be decoded into a workbook model.
	ErrTagDecodeFailure = goerr.NewTag("decode_failure")

	// ErrTagInvalidRequest marks a malformed inbound request. Only the HTTP boundary uses it.
	ErrTagInvalidRequest = goerr.NewTag("invalid_request")
)
