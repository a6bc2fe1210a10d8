package testsupport

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Diff fails the test with a readable diff when want and got differ.
// Empty and nil slices and maps compare equal.
func Diff(t testing.TB, label string, want, got any, opts ...cmp.Option) {
	t.Helper()

	opts = append(opts, cmpopts.EquateEmpty())
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("%s mismatch (-want +got):\n%s", label, diff)
	}
}
