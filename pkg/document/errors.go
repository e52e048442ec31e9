package document

import "errors"

// One sentinel per validation rule. Construction reports the first violated
// rule in pipeline order and nothing else; validation is deterministic, so
// none of these are retryable.
var (
	ErrInvalidText           = errors.New("text must be at most 8000 bytes, non-empty with attachment fields and empty without them")
	ErrInvalidTextHash       = errors.New("text hash must be the b-prefixed base32 SHA-256 of the text")
	ErrInvalidFormat         = errors.New("format must be printable ASCII without whitespace or control characters")
	ErrInvalidPath           = errors.New("path violates the document path rules")
	ErrInvalidSignature      = errors.New("signature is not a valid author signature over the document hash")
	ErrInvalidTimestamp      = errors.New("timestamp is outside the allowed microsecond range")
	ErrInvalidShareSignature = errors.New("share signature is not a well-formed b-prefixed base32 value")
	ErrInvalidDeleteAfter    = errors.New("delete_after must be within timestamp bounds and after the timestamp")
	ErrInvalidAttachmentSize = errors.New("attachment size is outside the allowed range")
	ErrInvalidAttachmentHash = errors.New("attachment hash is not a well-formed b-prefixed base32 SHA-256")
)

// ErrIncompleteDraft reports a draft missing its author or share address;
// the validation pipeline never runs for such drafts.
var ErrIncompleteDraft = errors.New("document draft needs an author and a share")
