package replica

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"earthstar/go-core/internal/platform/metrics"
	"earthstar/go-core/internal/platform/ratelimiter"
	"earthstar/go-core/pkg/document"
)

var (
	ErrShareNotAccepted = errors.New("document belongs to a share this replica does not accept")
	ErrThrottled        = errors.New("author is over the ingest rate limit")
	ErrObsolete         = errors.New("an equal or newer version is already stored")
	ErrAlreadyExpired   = errors.New("document is already past its delete_after")

	// ErrStoreFailed marks a storage failure, not a verdict on the document;
	// ingesting the same document again may succeed.
	ErrStoreFailed = errors.New("replica store could not persist the document")
)

// Ingestor validates raw wire documents and feeds them into a store, with a
// per-author rate limit and outcome counters.
type Ingestor struct {
	store   *Store
	limiter *ratelimiter.AuthorLimiter
	shares  map[string]struct{}
	log     *slog.Logger
}

// NewIngestor wires a store with a limiter and an accepted-share list. An
// empty share list accepts documents from any share; a nil limiter never
// throttles.
func NewIngestor(store *Store, limiter *ratelimiter.AuthorLimiter, shares []string, logger *slog.Logger) *Ingestor {
	accepted := make(map[string]struct{}, len(shares))
	for _, s := range shares {
		accepted[s] = struct{}{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, limiter: limiter, shares: accepted, log: logger}
}

// IngestRaw decodes, validates and stores one wire-JSON document. The
// returned error carries the first reason the document was refused.
func (ing *Ingestor) IngestRaw(raw []byte, now time.Time) (*document.Document, error) {
	doc, err := document.UnmarshalDocument(raw)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
		ing.log.Warn("document rejected", "reason", err.Error())
		return nil, err
	}
	return ing.Ingest(doc, now)
}

// Ingest stores an already-validated document, applying the share filter
// and rate limit.
func (ing *Ingestor) Ingest(doc *document.Document, now time.Time) (*document.Document, error) {
	share := doc.Share().String()
	author := doc.Author().String()

	if len(ing.shares) > 0 {
		if _, ok := ing.shares[share]; !ok {
			metrics.IngestRejected.WithLabelValues("share_not_accepted").Inc()
			ing.log.Warn("document rejected", "share", share, "reason", "share not accepted")
			return nil, ErrShareNotAccepted
		}
	}
	if !ing.limiter.Allow(author, now) {
		metrics.IngestThrottled.Inc()
		ing.log.Warn("document throttled", "author", author)
		return nil, ErrThrottled
	}
	if doc.Expired(now) {
		metrics.IngestRejected.WithLabelValues("expired").Inc()
		return nil, ErrAlreadyExpired
	}

	stored, err := ing.store.Upsert(doc)
	if err != nil {
		metrics.IngestRejected.WithLabelValues("store_error").Inc()
		ing.log.Error("document store failed", "share", share, "path", doc.Path(), "error", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if !stored {
		metrics.IngestObsolete.Inc()
		return nil, ErrObsolete
	}
	metrics.IngestAccepted.Inc()
	ing.log.Info("document accepted", "author", author, "share", share, "path", doc.Path())
	return doc, nil
}

// rejectReason buckets validation errors for the rejection counter.
func rejectReason(err error) string {
	for _, r := range []struct {
		err    error
		reason string
	}{
		{document.ErrInvalidText, "text"},
		{document.ErrInvalidTextHash, "text_hash"},
		{document.ErrInvalidFormat, "format"},
		{document.ErrInvalidPath, "path"},
		{document.ErrInvalidSignature, "signature"},
		{document.ErrInvalidTimestamp, "timestamp"},
		{document.ErrInvalidShareSignature, "share_signature"},
		{document.ErrInvalidDeleteAfter, "delete_after"},
		{document.ErrInvalidAttachmentSize, "attachment_size"},
		{document.ErrInvalidAttachmentHash, "attachment_hash"},
	} {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "decode"
}
