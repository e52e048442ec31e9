package document

import (
	"encoding/json"
	"fmt"
	"time"

	"earthstar/go-core/pkg/address"
)

// wireDocument is the JSON shape documents travel in: addresses as display
// strings, instants as integer microseconds since the Unix epoch.
type wireDocument struct {
	Author         string  `json:"author"`
	Text           string  `json:"text"`
	TextHash       string  `json:"text_hash"`
	Format         string  `json:"format"`
	Path           string  `json:"path"`
	Signature      string  `json:"signature"`
	Timestamp      int64   `json:"timestamp"`
	Share          string  `json:"share"`
	ShareSignature string  `json:"share_signature"`
	DeleteAfter    *int64  `json:"delete_after,omitempty"`
	AttachmentSize *int64  `json:"attachment_size,omitempty"`
	AttachmentHash *string `json:"attachment_hash,omitempty"`
}

// MarshalJSON renders the document in its wire shape.
func (doc *Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{
		Author:         doc.author.String(),
		Text:           doc.text,
		TextHash:       doc.textHash,
		Format:         doc.format,
		Path:           doc.path,
		Signature:      doc.signature,
		Timestamp:      doc.timestamp.UnixMicro(),
		Share:          doc.share.String(),
		ShareSignature: doc.shareSignature,
	}
	if doc.deleteAfter != nil {
		v := doc.deleteAfter.UnixMicro()
		w.DeleteAfter = &v
	}
	w.AttachmentSize = doc.attachmentSize
	w.AttachmentHash = doc.attachmentHash
	return json.Marshal(w)
}

// UnmarshalDocument decodes a wire-JSON document and runs the full
// validation pipeline, so a non-nil result is a validated document. The
// embedded addresses carry public keys only; the author signature is
// verified against them.
func UnmarshalDocument(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	author, err := address.ParseIdentity(w.Author)
	if err != nil {
		return nil, fmt.Errorf("decode document author: %w", err)
	}
	share, err := address.ParseShare(w.Share)
	if err != nil {
		return nil, fmt.Errorf("decode document share: %w", err)
	}
	draft := Draft{
		Author:         author,
		Text:           w.Text,
		TextHash:       w.TextHash,
		Format:         w.Format,
		Path:           w.Path,
		Signature:      w.Signature,
		Timestamp:      time.UnixMicro(w.Timestamp),
		Share:          share,
		ShareSignature: w.ShareSignature,
		AttachmentSize: w.AttachmentSize,
		AttachmentHash: w.AttachmentHash,
	}
	if w.DeleteAfter != nil {
		t := time.UnixMicro(*w.DeleteAfter)
		draft.DeleteAfter = &t
	}
	return New(draft)
}
