package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"earthstar/go-core/pkg/escodec"
)

func TestTextAttachmentCorrelation(t *testing.T) {
	// empty text, no attachment: tombstone, valid
	if _, err := New(tombstoneDraft(t)); err != nil {
		t.Fatalf("tombstone must be valid, got %v", err)
	}

	// empty text with attachment fields
	d := attachmentDraft(t)
	d.Text = ""
	if _, err := New(d); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("empty text with attachment must fail, got %v", err)
	}

	// non-empty text without attachment fields
	d = tombstoneDraft(t)
	d.Text = "hello"
	if _, err := New(d); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("text without attachment must fail, got %v", err)
	}

	// only one attachment field present
	d = attachmentDraft(t)
	d.AttachmentSize = nil
	if _, err := New(d); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("dangling attachment hash must fail, got %v", err)
	}

	// over the text byte limit
	d = attachmentDraft(t)
	d.Text = strings.Repeat("x", textLimit+1)
	if _, err := New(d); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("oversized text must fail, got %v", err)
	}

	// exactly at the limit
	d = attachmentDraft(t)
	d.Text = strings.Repeat("x", textLimit)
	if _, err := New(d); err != nil {
		t.Fatalf("text at the byte limit must pass, got %v", err)
	}
}

func TestTextHashRules(t *testing.T) {
	d := tombstoneDraft(t)
	d.TextHash = escodec.EncodeHash([]byte("something else"))
	if _, err := New(d); !errors.Is(err, ErrInvalidTextHash) {
		t.Fatalf("mismatched text hash must fail, got %v", err)
	}

	d = tombstoneDraft(t)
	d.TextHash = "x" + escodec.EncodeHash(nil)[1:]
	if _, err := New(d); !errors.Is(err, ErrInvalidTextHash) {
		t.Fatalf("wrong prefix must fail, got %v", err)
	}
}

func TestFormatRules(t *testing.T) {
	for _, format := range []string{"es 5", "es.5\n", "es.5\t", "es·5"} {
		d := tombstoneDraft(t)
		d.Format = format
		if _, err := New(d); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("format %q must fail, got %v", format, err)
		}
	}
	// other printable formats are fine; es.5 length pinning simply no
	// longer applies
	d := tombstoneDraft(t)
	d.Format = "es.4"
	if _, err := New(d); err != nil {
		t.Fatalf("format es.4 must pass, got %v", err)
	}
}

func TestPathRules(t *testing.T) {
	valid := []string{
		"/chat",
		"/posts/2024/summer",
		"/~@bob/settings",
		"/about/~@bob",
	}
	for _, p := range valid {
		d := tombstoneDraft(t)
		d.Path = p
		if _, err := New(d); err != nil {
			t.Fatalf("path %q must pass, got %v", p, err)
		}
	}

	invalid := []string{
		"/",                // too short
		"x/",               // no leading slash
		"/@bob/posts",      // starts with /@
		"/posts//deep",     // empty segment
		"/posts/a?b",       // forbidden character
		"/posts/a[b]",      // forbidden characters
		"/posts/a b",       // whitespace
		"/posts/ä",         // non-ASCII
		"/posts/!temp",     // ephemeral marker without delete_after
		"/posts/hello.txt", // extension without attachment
		"/~alice/settings", // tilde without the author marker
		"/~@alice/x",       // tilde scoped to someone else
		"/" + strings.Repeat("a", 512), // longer than 512
	}
	for _, p := range invalid {
		d := tombstoneDraft(t)
		d.Path = p
		if _, err := New(d); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("path %q must fail with ErrInvalidPath, got %v", p, err)
		}
	}

	// attachment documents need the extension
	d := attachmentDraft(t)
	d.Path = "/posts/hello"
	if _, err := New(d); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("attachment without extension must fail, got %v", err)
	}

	// a dotfile segment does not count as an extension
	d = attachmentDraft(t)
	d.Path = "/posts/.hidden"
	if _, err := New(d); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("dotfile path must not count as extension, got %v", err)
	}
}

func TestSignatureRules(t *testing.T) {
	// es.5 pins the author signature length; 32 bytes decode fine but
	// encode to 53 characters, not 104
	d := tombstoneDraft(t)
	d.Signature = escodec.Encode(make([]byte, 32))
	if _, err := New(d); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("short signature must fail, got %v", err)
	}

	d = tombstoneDraft(t)
	d.Signature = "not-base32"
	if _, err := New(d); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("undecodable signature must fail, got %v", err)
	}

	// right length and decodable, but not a signature by the author's key
	d = tombstoneDraft(t)
	d.Signature = escodec.Encode(make([]byte, 64))
	if _, err := New(d); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("forged signature must fail, got %v", err)
	}
}

func TestTimestampBounds(t *testing.T) {
	cases := []struct {
		micros int64
		want   error
	}{
		{minTimestampMicros - 1, ErrInvalidTimestamp},
		{minTimestampMicros, nil},
		{maxSafeInteger, nil},
		{maxSafeInteger + 1, ErrInvalidTimestamp},
	}
	for _, tc := range cases {
		d := tombstoneDraft(t)
		d.Timestamp = time.UnixMicro(tc.micros)
		_, err := New(d)
		if !errors.Is(err, tc.want) {
			t.Fatalf("timestamp %d: got %v, want %v", tc.micros, err, tc.want)
		}
	}
}

func TestDeleteAfterRules(t *testing.T) {
	run := func(deleteAfter time.Time) error {
		d := tombstoneDraft(t)
		d.Path = "/chat/!temp"
		d.DeleteAfter = &deleteAfter
		_, err := New(d)
		return err
	}

	if err := run(testTimestamp.Add(time.Hour)); err != nil {
		t.Fatalf("delete_after later than timestamp must pass, got %v", err)
	}
	if err := run(testTimestamp); !errors.Is(err, ErrInvalidDeleteAfter) {
		t.Fatalf("delete_after equal to timestamp must fail, got %v", err)
	}
	if err := run(testTimestamp.Add(-time.Hour)); !errors.Is(err, ErrInvalidDeleteAfter) {
		t.Fatalf("delete_after before timestamp must fail, got %v", err)
	}
	if err := run(time.UnixMicro(maxSafeInteger + 1)); !errors.Is(err, ErrInvalidDeleteAfter) {
		t.Fatalf("delete_after out of bounds must fail, got %v", err)
	}
}

func TestAttachmentFieldRules(t *testing.T) {
	run := func(size int64, hash string) error {
		d := attachmentDraft(t)
		d.AttachmentSize = &size
		d.AttachmentHash = &hash
		_, err := New(d)
		return err
	}
	goodHash := escodec.EncodeHash([]byte("blob"))

	if err := run(0, goodHash); err != nil {
		t.Fatalf("zero-byte attachment must pass, got %v", err)
	}
	if err := run(maxSafeInteger, goodHash); err != nil {
		t.Fatalf("attachment at the size bound must pass, got %v", err)
	}
	if err := run(-1, goodHash); !errors.Is(err, ErrInvalidAttachmentSize) {
		t.Fatalf("negative size must fail, got %v", err)
	}
	if err := run(maxSafeInteger+1, goodHash); !errors.Is(err, ErrInvalidAttachmentSize) {
		t.Fatalf("oversized attachment must fail, got %v", err)
	}
	if err := run(4, "bTOOSHORT"); !errors.Is(err, ErrInvalidAttachmentHash) {
		t.Fatalf("short attachment hash must fail, got %v", err)
	}
	if err := run(4, "x"+goodHash[1:]); !errors.Is(err, ErrInvalidAttachmentHash) {
		t.Fatalf("wrong attachment hash prefix must fail, got %v", err)
	}
}

// With several rules violated at once, the earliest check in pipeline order
// decides the error.
func TestPipelineOrder(t *testing.T) {
	d := tombstoneDraft(t)
	d.Text = strings.Repeat("x", textLimit+1) // check 1
	d.Format = "es 5"                         // check 3
	d.Path = "bad"                            // check 4
	d.Timestamp = time.UnixMicro(1)           // check 6
	if _, err := New(d); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("first failing check must win, got %v", err)
	}
}
