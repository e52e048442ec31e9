// estar-doc signs and verifies wire-JSON documents. Signing needs the
// author's encrypted key file and either the share's key file or a
// ready-made share signature; verification needs only the document bytes.
// Key file passphrases come from ESTAR_KEY_PASSPHRASE.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"earthstar/go-core/internal/keystore"
	"earthstar/go-core/pkg/address"
	"earthstar/go-core/pkg/document"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	verifyPath := flag.String("verify", "", "verify the wire-JSON document at this path and exit")
	keyPath := flag.String("key", "", "author key file (sign mode)")
	shareKeyPath := flag.String("share-key", "", "share key file (sign mode)")
	shareAddr := flag.String("share", "", "share address, when no share key file is given")
	shareSig := flag.String("share-signature", "", "pre-made share signature, when no share key file is given")
	path := flag.String("path", "", "document path")
	text := flag.String("text", "", "document text")
	format := flag.String("format", document.FormatEs5, "document format")
	deleteAfter := flag.Duration("delete-after", 0, "lifetime of an ephemeral document")
	attachmentSize := flag.Int64("attachment-size", -1, "declared attachment size in bytes")
	attachmentHash := flag.String("attachment-hash", "", "b-prefixed base32 SHA-256 of the attachment")
	out := flag.String("out", "", "write the signed document here instead of stdout")
	flag.Parse()
	if *showVersion {
		fmt.Printf("estar-doc version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	if *verifyPath != "" {
		verify(*verifyPath)
		return
	}
	sign(signArgs{
		keyPath:        *keyPath,
		shareKeyPath:   *shareKeyPath,
		shareAddr:      *shareAddr,
		shareSig:       *shareSig,
		path:           *path,
		text:           *text,
		format:         *format,
		deleteAfter:    *deleteAfter,
		attachmentSize: *attachmentSize,
		attachmentHash: *attachmentHash,
		out:            *out,
	})
}

func verify(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("estar-doc: %v", err)
	}
	doc, err := document.UnmarshalDocument(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("valid\nhash: %s\nauthor: %s\nshare: %s\npath: %s\n",
		doc.Hash(), doc.Author(), doc.Share(), doc.Path())
}

type signArgs struct {
	keyPath        string
	shareKeyPath   string
	shareAddr      string
	shareSig       string
	path           string
	text           string
	format         string
	deleteAfter    time.Duration
	attachmentSize int64
	attachmentHash string
	out            string
}

func sign(args signArgs) {
	if args.keyPath == "" {
		log.Fatal("estar-doc: -key is required to sign")
	}
	passphrase := os.Getenv("ESTAR_KEY_PASSPHRASE")

	author, err := loadIdentity(args.keyPath, passphrase)
	if err != nil {
		log.Fatalf("estar-doc: %v", err)
	}
	share, err := loadShare(args.shareKeyPath, args.shareAddr, passphrase)
	if err != nil {
		log.Fatalf("estar-doc: %v", err)
	}

	draft := document.Draft{
		Author:         author,
		Text:           args.text,
		Format:         args.format,
		Path:           args.path,
		Timestamp:      time.Now(),
		Share:          share,
		ShareSignature: args.shareSig,
	}
	if args.deleteAfter > 0 {
		t := draft.Timestamp.Add(args.deleteAfter)
		draft.DeleteAfter = &t
	}
	if args.attachmentSize >= 0 {
		draft.AttachmentSize = &args.attachmentSize
	}
	if args.attachmentHash != "" {
		draft.AttachmentHash = &args.attachmentHash
	}

	doc, err := document.New(draft)
	if err != nil {
		log.Fatalf("estar-doc: %v", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("estar-doc: %v", err)
	}
	if args.out == "" {
		fmt.Println(string(raw))
		return
	}
	if err := os.WriteFile(args.out, raw, 0o644); err != nil {
		log.Fatalf("estar-doc: %v", err)
	}
}

func loadIdentity(path, passphrase string) (*address.Identity, error) {
	rec, err := keystore.Load(path, passphrase)
	if err != nil {
		return nil, err
	}
	if rec.Kind != keystore.KindIdentity {
		return nil, fmt.Errorf("%s is a %s key file, not an identity", path, rec.Kind)
	}
	kp := address.Keypair{Public: rec.PublicKey, Private: rec.PrivateKey}
	return address.NewIdentity(rec.Name, &kp)
}

func loadShare(keyPath, addr, passphrase string) (*address.Share, error) {
	if keyPath != "" {
		rec, err := keystore.Load(keyPath, passphrase)
		if err != nil {
			return nil, err
		}
		if rec.Kind != keystore.KindShare {
			return nil, fmt.Errorf("%s is a %s key file, not a share", keyPath, rec.Kind)
		}
		kp := address.Keypair{Public: rec.PublicKey, Private: rec.PrivateKey}
		return address.NewShare(rec.Name, &kp)
	}
	if addr == "" {
		return nil, fmt.Errorf("either -share-key or -share is required")
	}
	return address.ParseShare(addr)
}
