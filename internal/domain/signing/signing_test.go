package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/testutil"
)

func newKey(t *testing.T) (ed25519.PrivateKey, ssh.Signer) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return priv, signer
}

func writeArchive(t *testing.T) string {
	t.Helper()
	return testutil.WriteTempFile(t, t.TempDir(), "inventory-prod.zip", "PK\x03\x04 fake archive")
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	_, signer := newKey(t)
	archive := writeArchive(t)

	sigPath, sig, err := Sign(archive, signer)
	require.NoError(t, err)
	assert.Equal(t, archive+".sig", sigPath)
	assert.Equal(t, "inventory-prod.zip", sig.Archive)
	assert.Equal(t, ssh.FingerprintSHA256(signer.PublicKey()), sig.Fingerprint)
	testutil.AssertFileExists(t, sigPath)

	got, err := Verify(archive, sigPath, nil)
	require.NoError(t, err)
	assert.Equal(t, sig.Digest, got.Digest)

	got, err = Verify(archive, sigPath, []ssh.PublicKey{signer.PublicKey()})
	require.NoError(t, err)
	assert.Equal(t, sig.Fingerprint, got.Fingerprint)
}

func TestVerify_TamperedArchive(t *testing.T) {
	t.Parallel()

	_, signer := newKey(t)
	archive := writeArchive(t)
	sigPath, _, err := Sign(archive, signer)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(archive, []byte("PK\x03\x04 tampered"), 0o644))

	_, err = Verify(archive, sigPath, nil)
	require.ErrorIs(t, err, ErrDigestMismatch)
}

func TestVerify_UntrustedKey(t *testing.T) {
	t.Parallel()

	_, signer := newKey(t)
	_, other := newKey(t)
	archive := writeArchive(t)
	sigPath, _, err := Sign(archive, signer)
	require.NoError(t, err)

	_, err = Verify(archive, sigPath, []ssh.PublicKey{other.PublicKey()})
	require.ErrorIs(t, err, ErrUntrustedKey)
}

func TestVerify_ForgedSignature(t *testing.T) {
	t.Parallel()

	_, signer := newKey(t)
	_, forger := newKey(t)
	archive := writeArchive(t)

	// Signed by one key but claiming another.
	sigPath, _, err := Sign(archive, forger)
	require.NoError(t, err)
	data, err := os.ReadFile(sigPath)
	require.NoError(t, err)
	forged := []byte(replaceKey(string(data), forger.PublicKey(), signer.PublicKey()))
	require.NoError(t, os.WriteFile(sigPath, forged, 0o644))

	_, err = Verify(archive, sigPath, nil)
	require.ErrorIs(t, err, ErrBadSignature)
}

func replaceKey(doc string, from, to ssh.PublicKey) string {
	old := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(from)))
	repl := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(to)))
	return strings.ReplaceAll(doc, old, repl)
}

func TestLoadSigner(t *testing.T) {
	t.Parallel()

	priv, signer := newKey(t)
	dir := t.TempDir()

	block, err := ssh.MarshalPrivateKey(priv, "release")
	require.NoError(t, err)
	plain := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(plain, pem.EncodeToMemory(block), 0o600))

	loaded, err := LoadSigner(plain, nil)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), loaded.PublicKey().Marshal())

	block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "release", []byte("s3cret"))
	require.NoError(t, err)
	encrypted := filepath.Join(dir, "id_ed25519_enc")
	require.NoError(t, os.WriteFile(encrypted, pem.EncodeToMemory(block), 0o600))

	_, err = LoadSigner(encrypted, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted")

	loaded, err = LoadSigner(encrypted, []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), loaded.PublicKey().Marshal())

	_, err = LoadSigner(filepath.Join(dir, "missing"), nil)
	require.Error(t, err)
}

func TestLoadTrustedKeys(t *testing.T) {
	t.Parallel()

	_, a := newKey(t)
	_, b := newKey(t)
	content := string(ssh.MarshalAuthorizedKey(a.PublicKey())) + "\n" + string(ssh.MarshalAuthorizedKey(b.PublicKey()))
	path := testutil.WriteTempFile(t, t.TempDir(), "trusted_keys", content)

	keys, err := LoadTrustedKeys(path)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, a.PublicKey().Marshal(), keys[0].Marshal())
	assert.Equal(t, b.PublicKey().Marshal(), keys[1].Marshal())

	bad := testutil.WriteTempFile(t, t.TempDir(), "bad_keys", "not a key\n")
	_, err = LoadTrustedKeys(bad)
	require.Error(t, err)
}
