// Package kvstoretest holds behaviour checks shared by every kvstore.Store
// backend.
package kvstoretest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/netgate/kvstore"
)

// Run exercises get/set/delete semantics against s.
func Run(t *testing.T, s kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing): ok=%v err=%v", ok, err)
	}

	want := []byte("bearer s3cret")
	if err := s.Set(ctx, "token", want, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "token")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get=%q want %q", got, want)
	}

	if err := s.Set(ctx, "token", []byte("rotated"), 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _, _ := s.Get(ctx, "token"); string(got) != "rotated" {
		t.Fatalf("after overwrite Get=%q", got)
	}

	if err := s.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Fatal("Delete left the key behind")
	}
	if err := s.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete of a missing key: %v", err)
	}
}
