// estar-keygen creates or restores the key pair behind a self-certifying
// address and prints the address. With -save the key pair is written to a
// password-encrypted key file (passphrase from ESTAR_KEY_PASSPHRASE).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"earthstar/go-core/internal/keystore"
	"earthstar/go-core/pkg/address"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	kind := flag.String("kind", keystore.KindIdentity, "address kind: identity | share")
	name := flag.String("name", "", "shortname for the address (required)")
	mnemonic := flag.String("mnemonic", "", "restore the key pair from a BIP-39 phrase")
	withMnemonic := flag.Bool("with-mnemonic", false, "derive the key pair from a fresh phrase and print it")
	savePath := flag.String("save", "", "write an encrypted key file to this path")
	flag.Parse()
	if *showVersion {
		fmt.Printf("estar-keygen version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}
	if *name == "" {
		log.Fatal("estar-keygen: -name is required")
	}
	if *kind != keystore.KindIdentity && *kind != keystore.KindShare {
		log.Fatalf("estar-keygen: unknown kind %q", *kind)
	}

	keypair, phrase, err := buildKeypair(*mnemonic, *withMnemonic)
	if err != nil {
		log.Fatalf("estar-keygen: %v", err)
	}

	display, err := buildAddress(*kind, *name, &keypair)
	if err != nil {
		log.Fatalf("estar-keygen: %v", err)
	}
	fmt.Println(display)
	if phrase != "" {
		fmt.Fprintf(os.Stderr, "recovery phrase: %s\n", phrase)
	}

	if *savePath != "" {
		passphrase := os.Getenv("ESTAR_KEY_PASSPHRASE")
		rec := keystore.Record{
			Kind:       *kind,
			Name:       *name,
			PublicKey:  keypair.Public,
			PrivateKey: keypair.Private,
		}
		if err := keystore.Save(*savePath, passphrase, rec); err != nil {
			log.Fatalf("estar-keygen: save key file: %v", err)
		}
		fmt.Fprintf(os.Stderr, "key file written to %s\n", *savePath)
	}
}

func buildKeypair(mnemonic string, withMnemonic bool) (address.Keypair, string, error) {
	switch {
	case mnemonic != "":
		kp, err := address.KeypairFromMnemonic(mnemonic)
		return kp, "", err
	case withMnemonic:
		phrase, err := address.NewMnemonic()
		if err != nil {
			return address.Keypair{}, "", err
		}
		kp, err := address.KeypairFromMnemonic(phrase)
		return kp, phrase, err
	default:
		kp, err := address.GenerateKeypair(nil)
		return kp, "", err
	}
}

func buildAddress(kind, name string, keypair *address.Keypair) (string, error) {
	if kind == keystore.KindShare {
		sh, err := address.NewShare(name, keypair)
		if err != nil {
			return "", err
		}
		return sh.String(), nil
	}
	id, err := address.NewIdentity(name, keypair)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
