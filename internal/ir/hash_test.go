package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageID_Deterministic(t *testing.T) {
	a := ImageID([]byte("R1C1:PLC 0 1\n"))
	b := ImageID([]byte("R1C1:PLC 0 1\n"))
	c := ImageID([]byte("R1C1:PLC 0 2\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSampleID_StableAndDistinct(t *testing.T) {
	id1, err := SampleID("w1", "w0", "img")
	require.NoError(t, err)
	id2 := MustSampleID("w1", "w0", "img")
	id3 := MustSampleID("w1", "w2", "img")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainImage, data), hashWithDomain(DomainSample, data))
}
