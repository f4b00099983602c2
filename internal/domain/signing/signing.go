// Package signing signs plugin archives with SSH keys and verifies the
// detached signatures.
package signing

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Extension is appended to an archive path to form its signature path.
const Extension = ".sig"

// namespace prefixes the signed message so archive signatures cannot be
// replayed as signatures over other data.
const namespace = "pluginkit-archive-v1"

// Sentinel errors for programmatic error handling.
var (
	// ErrDigestMismatch indicates the archive changed after signing.
	ErrDigestMismatch = errors.New("archive digest does not match signature")
	// ErrUntrustedKey indicates the signing key is not in the trusted set.
	ErrUntrustedKey = errors.New("archive signed by an untrusted key")
	// ErrBadSignature indicates the signature does not verify.
	ErrBadSignature = errors.New("invalid archive signature")
)

// Signature is the detached signature stored next to an archive.
type Signature struct {
	Archive     string    `json:"archive"`
	Digest      string    `json:"sha256"`
	Format      string    `json:"format"`
	Blob        string    `json:"signature"`
	PublicKey   string    `json:"publicKey"`
	Fingerprint string    `json:"fingerprint"`
	SignedAt    time.Time `json:"signedAt"`
}

// LoadSigner reads an SSH private key. A leading ~/ expands to the home
// directory. Encrypted keys need a passphrase.
func LoadSigner(path string, passphrase []byte) (ssh.Signer, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	var signer ssh.Signer
	if len(passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("signing key %s is encrypted: %w", path, err)
		}
		return nil, fmt.Errorf("parsing signing key %s: %w", path, err)
	}
	return signer, nil
}

// LoadTrustedKeys reads public keys in authorized_keys format.
func LoadTrustedKeys(path string) ([]ssh.PublicKey, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading trusted keys: %w", err)
	}

	var keys []ssh.PublicKey
	for len(bytes.TrimSpace(data)) > 0 {
		key, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("parsing trusted keys %s: %w", path, err)
		}
		keys = append(keys, key)
		data = rest
	}
	return keys, nil
}

// SignaturePath returns the detached signature path for an archive.
func SignaturePath(archivePath string) string {
	return archivePath + Extension
}

// Sign signs the archive and writes its detached signature. It returns the
// signature path.
func Sign(archivePath string, signer ssh.Signer) (string, *Signature, error) {
	digest, err := Digest(archivePath)
	if err != nil {
		return "", nil, err
	}

	sig, err := signer.Sign(rand.Reader, message(digest))
	if err != nil {
		return "", nil, fmt.Errorf("signing %s: %w", archivePath, err)
	}

	pub := signer.PublicKey()
	out := &Signature{
		Archive:     filepath.Base(archivePath),
		Digest:      digest,
		Format:      sig.Format,
		Blob:        base64.StdEncoding.EncodeToString(sig.Blob),
		PublicKey:   strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub))),
		Fingerprint: ssh.FingerprintSHA256(pub),
		SignedAt:    time.Now().UTC().Truncate(time.Second),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", nil, err
	}
	path := SignaturePath(archivePath)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", nil, fmt.Errorf("writing signature: %w", err)
	}
	return path, out, nil
}

// Verify checks the archive against its detached signature. When trusted is
// non-empty the signing key must be one of them.
func Verify(archivePath, sigPath string, trusted []ssh.PublicKey) (*Signature, error) {
	data, err := os.ReadFile(sigPath)
	if err != nil {
		return nil, fmt.Errorf("reading signature: %w", err)
	}
	var sig Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("parsing signature %s: %w", sigPath, err)
	}

	digest, err := Digest(archivePath)
	if err != nil {
		return nil, err
	}
	if digest != sig.Digest {
		return &sig, ErrDigestMismatch
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(sig.PublicKey))
	if err != nil {
		return &sig, fmt.Errorf("%w: public key: %w", ErrBadSignature, err)
	}
	if len(trusted) > 0 && !containsKey(trusted, pub) {
		return &sig, fmt.Errorf("%w: %s", ErrUntrustedKey, ssh.FingerprintSHA256(pub))
	}

	blob, err := base64.StdEncoding.DecodeString(sig.Blob)
	if err != nil {
		return &sig, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if err := pub.Verify(message(digest), &ssh.Signature{Format: sig.Format, Blob: blob}); err != nil {
		return &sig, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return &sig, nil
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func message(digest string) []byte {
	return []byte(namespace + "\nsha256:" + digest + "\n")
}

func containsKey(keys []ssh.PublicKey, key ssh.PublicKey) bool {
	want := key.Marshal()
	for _, k := range keys {
		if bytes.Equal(k.Marshal(), want) {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
