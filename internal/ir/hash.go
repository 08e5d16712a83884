package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainImage  = "pipfuzz/image/v1"
	DomainSample = "pipfuzz/sample/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ImageID computes the content-addressed ID of a configuration image.
// Two builds producing identical bytes share an ID regardless of artifact
// name or location.
func ImageID(data []byte) string {
	return hashWithDomain(DomainImage, data)
}

// SampleID computes the content-addressed ID of a (sink, source, image)
// sample. The ID is stable across runs given the same inputs.
func SampleID(sink, source, imageID string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"sink":     sink,
		"source":   source,
		"image_id": imageID,
	})
	if err != nil {
		return "", fmt.Errorf("SampleID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSample, canonical), nil
}

// MustSampleID is like SampleID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSampleID(sink, source, imageID string) string {
	id, err := SampleID(sink, source, imageID)
	if err != nil {
		panic(err)
	}
	return id
}
