package docparse

import "errors"

// Error kinds surfaced by the extraction pipeline. Callers match them with
// errors.Is; the HTTP layer maps them to user-facing messages.
var (
	// ErrParseFailure means no extraction strategy produced adequate text.
	ErrParseFailure = errors.New("could not extract text from document")

	// ErrInvalidContent means text was extracted but is unusable as
	// educational content (empty, gibberish, metadata-heavy or image-based).
	ErrInvalidContent = errors.New("document content is not usable")

	// ErrUnsupportedFormat means the filename/bytes match no known format.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
