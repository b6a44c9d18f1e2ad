package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func stores(t *testing.T) map[string]Store {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	out := map[string]Store{
		"memory":     NewMemoryStore(),
		"filesystem": fs,
	}
	if bucket := os.Getenv("ARBITER_TEST_S3_BUCKET"); bucket != "" {
		s, err := NewS3Store(context.Background(), S3Config{
			Bucket:   bucket,
			Region:   os.Getenv("AWS_REGION"),
			Endpoint: os.Getenv("ARBITER_TEST_S3_ENDPOINT"),
			Prefix:   "arbiter-test/" + t.Name() + "/",
		})
		if err != nil {
			t.Fatalf("NewS3Store() failed: %v", err)
		}
		out["s3"] = s
	}
	return out
}

// TestStore_PutGetList tests the round trip through each backend.
func TestStore_PutGetList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ref, err := store.Put(ctx, "FC-1", "b.json", []byte(`{"b":1}`))
			if err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			if ref.SHA256 != HashBytes([]byte(`{"b":1}`)) {
				t.Errorf("Unexpected digest %s", ref.SHA256)
			}
			if ref.ID == "" || ref.URI == "" || ref.CaseID != "FC-1" || ref.Name != "b.json" {
				t.Errorf("Incomplete ref: %+v", ref)
			}
			if _, err := store.Put(ctx, "FC-1", "a.json", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			if _, err := store.Put(ctx, "FC-2", "a.json", []byte(`{}`)); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}

			// Overwrite
			if _, err := store.Put(ctx, "FC-1", "b.json", []byte(`{"b":2}`)); err != nil {
				t.Fatalf("Put() failed: %v", err)
			}
			data, err := store.Get(ctx, "FC-1", "b.json")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if string(data) != `{"b":2}` {
				t.Errorf("Get() = %s, want overwritten content", data)
			}

			refs, err := store.List(ctx, "FC-1")
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			var names []string
			for _, r := range refs {
				names = append(names, r.Name)
			}
			if diff := cmp.Diff([]string{"a.json", "b.json"}, names); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}

			if _, err := store.Get(ctx, "FC-1", "missing.json"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
			if err := store.Ping(ctx); err != nil {
				t.Errorf("Ping() failed: %v", err)
			}
		})
	}
}

// TestStore_InvalidNames tests that keys cannot escape the case namespace.
func TestStore_InvalidNames(t *testing.T) {
	tests := []struct {
		caseID string
		name   string
	}{
		{"FC-1", "../escape.json"},
		{"FC-1", "nested/file.json"},
		{"..", "file.json"},
		{"", "file.json"},
		{"FC-1", ""},
	}
	for storeName, store := range stores(t) {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.caseID+"/"+tt.name, func(t *testing.T) {
				if _, err := store.Put(context.Background(), tt.caseID, tt.name, []byte("x")); !errors.Is(err, ErrInvalidName) {
					t.Errorf("Expected ErrInvalidName, got %v", err)
				}
			})
		}
	}
}

// TestFileStore_Layout tests the on-disk layout.
func TestFileStore_Layout(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	ref, err := fs.Put(context.Background(), "APL-9", "governed_record.json", []byte("{}"))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	path := filepath.Join(root, "runs", "APL-9", "governed_record.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected artifact at %s: %v", path, err)
	}
	if !strings.HasPrefix(ref.URI, "file://") {
		t.Errorf("Unexpected URI %s", ref.URI)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file left behind")
	}
}

// TestCanonical tests that key order does not affect the digest.
func TestCanonical(t *testing.T) {
	a, err := Canonical(map[string]any{"b": 1, "a": []int{2, 1}, "c": "<x>"})
	if err != nil {
		t.Fatalf("Canonical() failed: %v", err)
	}
	want := `{"a":[2,1],"b":1,"c":"<x>"}`
	if string(a) != want {
		t.Errorf("Canonical() = %s, want %s", a, want)
	}

	type pair struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	b, err := Canonical(pair{B: 1, A: 2})
	if err != nil {
		t.Fatalf("Canonical() failed: %v", err)
	}
	if string(b) != `{"a":2,"b":1}` {
		t.Errorf("Canonical(struct) = %s", b)
	}
}

// TestPutGetJSON tests the JSON helpers.
func TestPutGetJSON(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := map[string]any{"case_id": "FC-1", "final_decision": "APPROVE"}
	ref, err := PutJSON(ctx, store, "FC-1", "final_governed_decision.json", in)
	if err != nil {
		t.Fatalf("PutJSON() failed: %v", err)
	}
	again, err := PutJSON(ctx, store, "FC-1", "final_governed_decision.json", map[string]any{"final_decision": "APPROVE", "case_id": "FC-1"})
	if err != nil {
		t.Fatalf("PutJSON() failed: %v", err)
	}
	if ref.SHA256 != again.SHA256 {
		t.Errorf("Equal content produced different digests")
	}

	var out map[string]any
	if err := GetJSON(ctx, store, "FC-1", "final_governed_decision.json", &out); err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("GetJSON() mismatch (-want +got):\n%s", diff)
	}
}
