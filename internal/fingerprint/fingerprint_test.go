package fingerprint

import "testing"

func TestOfBytesMatchesKnownGitBlobID(t *testing.T) {
	// "git hash-object" of a file containing exactly "hello world\n"
	// is well known: 3b18e512dba79e4c8300dd08aeb37f8e728b8dad.
	got := OfBytes([]byte("hello world\n"))
	want := "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"
	if got != want {
		t.Fatalf("OfBytes() = %q, want %q", got, want)
	}
}

func TestOfBytesStableForIdenticalContent(t *testing.T) {
	a := OfBytes([]byte("package main\n"))
	b := OfBytes([]byte("package main\n"))
	if a != b {
		t.Fatalf("identical content produced different fingerprints: %q vs %q", a, b)
	}
}

func TestOfBytesEmptyFile(t *testing.T) {
	got := OfBytes([]byte{})
	want := "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	if got != want {
		t.Fatalf("OfBytes(empty) = %q, want %q", got, want)
	}
}
