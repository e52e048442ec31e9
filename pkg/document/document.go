// Package document implements the signed, content-hashed record at the heart
// of the protocol and the ordered validation pipeline that decides whether a
// record is acceptable. A Document can only be obtained through New or
// UnmarshalDocument, both of which run the full pipeline, so holding a
// *Document means holding a validated one. Documents are immutable and
// freely shareable across goroutines.
package document

import (
	"bytes"
	"strconv"
	"time"

	"earthstar/go-core/pkg/address"
	"earthstar/go-core/pkg/escodec"
)

// FormatEs5 is the document format version whose signatures are exactly
// escodec.SignatureLength characters long.
const FormatEs5 = "es.5"

const textLimit = 8000

// Timestamps and attachment sizes must stay within the integer range every
// peer can represent exactly. The lower timestamp bound also catches values
// mistakenly encoded in seconds or milliseconds, which fall well below
// 1e13 microseconds.
const (
	minTimestampMicros = 10_000_000_000_000
	maxSafeInteger     = 1<<53 - 2
)

// Draft carries the caller-supplied fields for a new document. TextHash,
// Signature and ShareSignature may be left empty: TextHash is always
// computed, the signatures are computed when the corresponding address
// carries its private key. Supplied values are used as-is and must survive
// validation.
type Draft struct {
	Author         *address.Identity
	Text           string
	TextHash       string
	Format         string
	Path           string
	Signature      string
	Timestamp      time.Time
	Share          *address.Share
	ShareSignature string
	DeleteAfter    *time.Time
	AttachmentSize *int64
	AttachmentHash *string
}

// Document is a validated, immutable signed record.
type Document struct {
	author         *address.Identity
	text           string
	textHash       string
	format         string
	path           string
	signature      string
	timestamp      time.Time
	share          *address.Share
	shareSignature string
	deleteAfter    *time.Time
	attachmentSize *int64
	attachmentHash *string

	hash string
}

// New completes the draft (hashes, signatures) and runs the validation
// pipeline. On the first violated rule it returns that rule's error and no
// document.
func New(d Draft) (*Document, error) {
	if d.Author == nil || d.Share == nil {
		return nil, ErrIncompleteDraft
	}
	doc := &Document{
		author:         d.Author,
		text:           d.Text,
		textHash:       d.TextHash,
		format:         d.Format,
		path:           d.Path,
		signature:      d.Signature,
		timestamp:      d.Timestamp,
		share:          d.Share,
		shareSignature: d.ShareSignature,
	}
	if d.DeleteAfter != nil {
		t := *d.DeleteAfter
		doc.deleteAfter = &t
	}
	if d.AttachmentSize != nil {
		v := *d.AttachmentSize
		doc.attachmentSize = &v
	}
	if d.AttachmentHash != nil {
		h := *d.AttachmentHash
		doc.attachmentHash = &h
	}

	if doc.textHash == "" {
		doc.textHash = escodec.EncodeHash([]byte(doc.text))
	}
	if doc.shareSignature == "" && doc.share.CanSign() {
		sig, err := doc.share.Sign(doc.canonicalBytes(false))
		if err != nil {
			return nil, err
		}
		doc.shareSignature = escodec.Encode(sig)
	}
	doc.hash = escodec.EncodeHash(doc.canonicalBytes(true))
	if doc.signature == "" && doc.author.CanSign() {
		sig, err := doc.author.Sign([]byte(doc.hash))
		if err != nil {
			return nil, err
		}
		doc.signature = escodec.Encode(sig)
	}

	for _, c := range pipeline {
		if !c.ok(doc) {
			return nil, c.err
		}
	}
	return doc, nil
}

// canonicalBytes produces the deterministic serialization hashed into the
// document hash: "<name>\t<value>\n" lines in fixed field order, attachment
// fields first when present. The share signature line is omitted when the
// payload is the one the share key signs, since that signature cannot cover
// itself.
func (doc *Document) canonicalBytes(withShareSignature bool) []byte {
	var b bytes.Buffer
	if doc.attachmentHash != nil && doc.attachmentSize != nil {
		writeField(&b, "attachment_hash", *doc.attachmentHash)
		writeField(&b, "attachment_size", strconv.FormatInt(*doc.attachmentSize, 10))
	}
	writeField(&b, "author", doc.author.String())
	deleteAfter := int64(0)
	if doc.deleteAfter != nil {
		deleteAfter = doc.deleteAfter.UnixMicro()
	}
	writeField(&b, "delete_after", strconv.FormatInt(deleteAfter, 10))
	writeField(&b, "format", doc.format)
	writeField(&b, "path", doc.path)
	writeField(&b, "share", doc.share.String())
	if withShareSignature {
		writeField(&b, "share_signature", doc.shareSignature)
	}
	writeField(&b, "text_hash", doc.textHash)
	writeField(&b, "timestamp", strconv.FormatInt(doc.timestamp.UnixMicro(), 10))
	return b.Bytes()
}

func writeField(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteByte('\t')
	b.WriteString(value)
	b.WriteByte('\n')
}

// Hash returns the canonical document hash, the value the author signature
// covers.
func (doc *Document) Hash() string { return doc.hash }

// Author returns the author address.
func (doc *Document) Author() *address.Identity { return doc.author }

// Share returns the share address.
func (doc *Document) Share() *address.Share { return doc.share }

// Text returns the inline document content.
func (doc *Document) Text() string { return doc.text }

// TextHash returns the encoded SHA-256 of the text.
func (doc *Document) TextHash() string { return doc.textHash }

// Format returns the document format version.
func (doc *Document) Format() string { return doc.format }

// Path returns the document path within its share.
func (doc *Document) Path() string { return doc.path }

// Signature returns the encoded author signature.
func (doc *Document) Signature() string { return doc.signature }

// ShareSignature returns the encoded share signature.
func (doc *Document) ShareSignature() string { return doc.shareSignature }

// Timestamp returns the document's wall-clock timestamp.
func (doc *Document) Timestamp() time.Time { return doc.timestamp }

// DeleteAfter returns the expiry instant of an ephemeral document.
func (doc *Document) DeleteAfter() (time.Time, bool) {
	if doc.deleteAfter == nil {
		return time.Time{}, false
	}
	return *doc.deleteAfter, true
}

// AttachmentSize returns the declared size of the external attachment.
func (doc *Document) AttachmentSize() (int64, bool) {
	if doc.attachmentSize == nil {
		return 0, false
	}
	return *doc.attachmentSize, true
}

// AttachmentHash returns the encoded SHA-256 of the external attachment.
func (doc *Document) AttachmentHash() (string, bool) {
	if doc.attachmentHash == nil {
		return "", false
	}
	return *doc.attachmentHash, true
}

// Expired reports whether an ephemeral document's delete_after has passed.
func (doc *Document) Expired(now time.Time) bool {
	return doc.deleteAfter != nil && !now.Before(*doc.deleteAfter)
}

func (doc *Document) hasAttachment() bool {
	return doc.attachmentHash != nil && doc.attachmentSize != nil
}
