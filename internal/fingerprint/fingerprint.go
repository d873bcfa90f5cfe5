// Package fingerprint computes the content-addressed identity used for
// change detection: the git blob object-id of a file's bytes. Using the
// blob-id (rather than a bespoke digest) means the fingerprint is stable
// across any tool that already speaks git, and two files with identical
// bytes always fingerprint identically regardless of path or mtime.
package fingerprint

import (
	"github.com/go-git/go-git/v5/plumbing"
)

// OfBytes returns the git blob object-id of content: the SHA-1 of
// "blob " + decimal(len(content)) + "\x00" + content.
func OfBytes(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}
