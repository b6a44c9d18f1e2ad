package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ref identifies a stored artifact.
type Ref struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	SHA256    string    `json:"sha256"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists artifacts keyed by case id and name. Put overwrites an
// artifact of the same name.
type Store interface {
	Put(ctx context.Context, caseID, name string, data []byte) (*Ref, error)
	Get(ctx context.Context, caseID, name string) ([]byte, error)
	List(ctx context.Context, caseID string) ([]Ref, error)
	Ping(ctx context.Context) error
}

// validateKey rejects case ids and names that would escape the case's
// namespace.
func validateKey(caseID, name string) error {
	for _, part := range []string{caseID, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return ErrInvalidName
		}
	}
	return nil
}

// HashBytes returns the hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newRef(caseID, name, uri string, data []byte) *Ref {
	return &Ref{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Name:      name,
		URI:       uri,
		SHA256:    HashBytes(data),
		Size:      len(data),
		CreatedAt: time.Now().UTC(),
	}
}
