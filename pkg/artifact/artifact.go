// Package artifact stores uploaded model bytes. Artifacts are content
// addressed per owner, so storing the same upload twice is a no-op and an
// artifact never changes once written.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

type Metadata struct {
	OwnerID  string
	Filename string
	Digest   string
}

type Store interface {
	Put(ctx context.Context, data []byte, meta Metadata) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

// Digest is the hex sha256 of an artifact's bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// ID derives the storage key for an artifact. The owner is hashed so that
// arbitrary account identifiers are safe as path and key components.
func ID(ownerID, digest string) string {
	owner := sha256.Sum256([]byte(ownerID))

	return hex.EncodeToString(owner[:8]) + "/" + digest
}

func idFor(data []byte, meta Metadata) string {
	digest := meta.Digest
	if digest == "" {
		digest = Digest(data)
	}

	return ID(meta.OwnerID, digest)
}

func checkID(id string) error {
	owner, digest, ok := strings.Cut(id, "/")
	if !ok || len(owner) != 16 || len(digest) != 64 {
		return fmt.Errorf("malformed artifact id %q", id)
	}

	if _, err := hex.DecodeString(owner + digest); err != nil {
		return fmt.Errorf("malformed artifact id %q", id)
	}

	return nil
}

// Open selects a backend from the URL scheme: a bare path or file:// for the
// local filesystem, s3://bucket/prefix, or redis://host:port/db.
func Open(rawURL string) (Store, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact root %q: %w", rawURL, err)
	}

	switch parsed.Scheme {
	case "", "file":
		return NewFileStore(parsed.Path)
	case "s3":
		return NewS3Store(parsed)
	case "redis", "rediss":
		return NewRedisStore(rawURL)
	default:
		return nil, fmt.Errorf("unsupported artifact root scheme %q", parsed.Scheme)
	}
}
