package document

import (
	"strings"

	"earthstar/go-core/pkg/escodec"
)

// check pairs one validation predicate with the error reported when it
// fails. Predicates are pure and independent; only the pipeline order
// decides which error a multiply-invalid document reports.
type check struct {
	err error
	ok  func(*Document) bool
}

// pipeline is the fixed check order. Construction short-circuits on the
// first failing entry.
var pipeline = []check{
	{ErrInvalidText, (*Document).validText},
	{ErrInvalidTextHash, (*Document).validTextHash},
	{ErrInvalidFormat, (*Document).validFormat},
	{ErrInvalidPath, (*Document).validPath},
	{ErrInvalidSignature, (*Document).validSignature},
	{ErrInvalidTimestamp, (*Document).validTimestamp},
	{ErrInvalidShareSignature, (*Document).validShareSignature},
	{ErrInvalidDeleteAfter, (*Document).validDeleteAfter},
	{ErrInvalidAttachmentSize, (*Document).validAttachmentSize},
	{ErrInvalidAttachmentHash, (*Document).validAttachmentHash},
}

// A document is either inline text with an attachment reference or an empty
// tombstone with neither: attachment fields and non-empty text go together.
func (doc *Document) validText() bool {
	if len(doc.text) > textLimit {
		return false
	}
	hasHash := doc.attachmentHash != nil
	hasSize := doc.attachmentSize != nil
	switch {
	case hasHash && hasSize:
		return doc.text != ""
	case !hasHash && !hasSize:
		return doc.text == ""
	default:
		return false
	}
}

func (doc *Document) validTextHash() bool {
	return escodec.CheckEncoded(doc.textHash, escodec.HashLength) &&
		doc.textHash == escodec.EncodeHash([]byte(doc.text))
}

func (doc *Document) validFormat() bool {
	return printableASCII(doc.format)
}

// pathForbidden are the URL-delimiter and bracket characters banned from
// paths.
const pathForbidden = `?#;<>"[\]^{|}`

func (doc *Document) validPath() bool {
	p := doc.path
	if len(p) < 2 || len(p) > 512 {
		return false
	}
	if !printableASCII(p) {
		return false
	}
	if p[0] != '/' || strings.HasPrefix(p, "/@") {
		return false
	}
	if strings.Contains(p, "//") {
		return false
	}
	if strings.ContainsAny(p, pathForbidden) {
		return false
	}
	// '!' marks an ephemeral document, so it must appear exactly when a
	// delete_after is set.
	if strings.Contains(p, "!") != (doc.deleteAfter != nil) {
		return false
	}
	// A file extension marks an attachment reference.
	if hasExtension(p) != doc.hasAttachment() {
		return false
	}
	// '~' scopes a subtree to its author; the author's own shortname must
	// appear in the marker.
	if strings.Contains(p, "~") && !strings.Contains(p, "~@"+doc.author.Shortname()) {
		return false
	}
	return true
}

func (doc *Document) validSignature() bool {
	if doc.format == FormatEs5 && len(doc.signature) != escodec.SignatureLength {
		return false
	}
	raw, err := escodec.Decode(doc.signature)
	if err != nil {
		return false
	}
	return doc.author.Verify([]byte(doc.hash), raw)
}

func (doc *Document) validTimestamp() bool {
	ts := doc.timestamp.UnixMicro()
	return ts >= minTimestampMicros && ts <= maxSafeInteger
}

// The share signature is only checked for shape. Verifying it against the
// share key is not part of es.5 validation; acceptance into a particular
// replica decides what a share signature is worth.
func (doc *Document) validShareSignature() bool {
	if doc.format == FormatEs5 && len(doc.shareSignature) != escodec.SignatureLength {
		return false
	}
	return escodec.CheckPrefixed(doc.shareSignature)
}

func (doc *Document) validDeleteAfter() bool {
	if doc.deleteAfter == nil {
		return true
	}
	da := doc.deleteAfter.UnixMicro()
	return da >= minTimestampMicros && da <= maxSafeInteger &&
		da > doc.timestamp.UnixMicro()
}

func (doc *Document) validAttachmentSize() bool {
	if doc.attachmentSize == nil {
		return true
	}
	return *doc.attachmentSize >= 0 && *doc.attachmentSize <= maxSafeInteger
}

// The attachment bytes themselves never reach this layer, so only the hash
// syntax can be checked.
func (doc *Document) validAttachmentHash() bool {
	if doc.attachmentHash == nil {
		return true
	}
	return escodec.CheckEncoded(*doc.attachmentHash, escodec.HashLength)
}

// printableASCII reports whether every byte is printable ASCII excluding
// space, which also rules out control characters and non-ASCII bytes.
func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= 0x20 || s[i] >= 0x7f {
			return false
		}
	}
	return true
}

// hasExtension reports whether the final path segment contains a dot that is
// neither its first nor last character, so "/a/.hidden" and "/a/name." do
// not count.
func hasExtension(p string) bool {
	seg := p[strings.LastIndexByte(p, '/')+1:]
	i := strings.LastIndexByte(seg, '.')
	return i > 0 && i < len(seg)-1
}
