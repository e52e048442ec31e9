// Package addrlog keeps full self-certifying addresses out of log output.
// An address embeds a complete public key; logs only need a stable short
// handle, so address-valued attributes are replaced with a fingerprint.
package addrlog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	fingerprintPrefix = "es1"
	fingerprintLength = 12
)

var addressKeys = map[string]struct{}{
	"author":  {},
	"share":   {},
	"address": {},
}

// Fingerprint derives a short stable handle for an address.
func Fingerprint(addr string) string {
	h := blake2b.Sum256([]byte(addr))
	encoded := base58.Encode(h[:])
	if len(encoded) > fingerprintLength {
		encoded = encoded[:fingerprintLength]
	}
	return fingerprintPrefix + encoded
}

// Handler wraps another slog.Handler and fingerprints address attributes.
type Handler struct {
	next slog.Handler
}

// Wrap returns a fingerprinting handler around next.
func Wrap(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(sanitize(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		sanitized = append(sanitized, sanitize(attr))
	}
	return &Handler{next: h.next.WithAttrs(sanitized)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

func sanitize(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, inner := range group {
			out = append(out, sanitize(inner))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(out...)}
	}

	value := attr.Value.String()
	if _, known := addressKeys[strings.ToLower(attr.Key)]; known || looksLikeAddress(value) {
		return slog.String(attr.Key, Fingerprint(value))
	}
	return attr
}

// looksLikeAddress matches the display forms "@name.b…" and "+name.b…".
func looksLikeAddress(s string) bool {
	if len(s) < 4 || (s[0] != '@' && s[0] != '+') {
		return false
	}
	return strings.Contains(s, ".b")
}
