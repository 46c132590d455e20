// Package source provides operator-stream providers: the PDF-backed
// implementation of extract.Source plus input-kind sniffing used by the
// high-level API to route between live extraction and parsed-scene
// archives.
package source

import (
	"bytes"
	"errors"
)

// ErrInvalidSource marks input that is neither a page-description file
// nor a parsed-scene archive.
var ErrInvalidSource = errors.New("source: invalid source")

// Kind is the detected flavour of an input.
type Kind int

const (
	KindUnknown Kind = iota

	// KindOperatorStream is a page-description document (PDF).
	KindOperatorStream

	// KindParsedArchive is a parsed-scene archive.
	KindParsedArchive
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Detect sniffs the input bytes. A PDF may start with junk before the
// header, so the magic is searched in the first kilobyte.
func Detect(data []byte) Kind {
	if bytes.HasPrefix(data, zipMagic) {
		return KindParsedArchive
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, pdfMagic) {
		return KindOperatorStream
	}
	return KindUnknown
}
