package artifacts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 canonical JSON encoding of v.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal failed: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform failed: %w", err)
	}
	return out, nil
}

// PutJSON stores v as canonical JSON.
func PutJSON(ctx context.Context, s Store, caseID, name string, v any) (*Ref, error) {
	data, err := Canonical(v)
	if err != nil {
		return nil, err
	}
	return s.Put(ctx, caseID, name, data)
}

// GetJSON loads a JSON artifact into out.
func GetJSON(ctx context.Context, s Store, caseID, name string, out any) error {
	data, err := s.Get(ctx, caseID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s/%s: %w", caseID, name, err)
	}
	return nil
}
