package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fop-attendance-api/internal/models"
)

func TestCodecJSONRoundTrip(t *testing.T) {
	codec := NewCodec(FormatJSON)

	payload, err := codec.Encode(models.StudentIdentity{StudentID: "007", StudentName: "Alice"})
	require.NoError(t, err)
	assert.Contains(t, payload, `"p":"FOP_ATTENDANCE"`)

	identity := codec.Decode(payload)
	require.NotNil(t, identity)
	assert.Equal(t, "007", identity.StudentID)
	assert.Equal(t, "Alice", identity.StudentName)
}

func TestCodecPipeRoundTrip(t *testing.T) {
	codec := NewCodec(FormatPipe)

	payload, err := codec.Encode(models.StudentIdentity{StudentID: "007", StudentName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "007|Alice", payload)

	identity := codec.Decode(payload)
	require.NotNil(t, identity)
	assert.Equal(t, "007", identity.StudentID)
	assert.Equal(t, "Alice", identity.StudentName)
}

func TestCodecPreservesLeadingZeros(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatPipe} {
		codec := NewCodec(format)
		payload, err := codec.Encode(models.StudentIdentity{StudentID: "001234567", StudentName: "Bob"})
		require.NoError(t, err)

		identity := codec.Decode(payload)
		require.NotNil(t, identity, format)
		assert.Equal(t, "001234567", identity.StudentID, format)
	}
}

func TestCodecEncodeTrimsWhitespace(t *testing.T) {
	codec := NewCodec(FormatPipe)
	payload, err := codec.Encode(models.StudentIdentity{StudentID: "  007 ", StudentName: " Alice "})
	require.NoError(t, err)
	assert.Equal(t, "007|Alice", payload)
}

func TestCodecEncodeRejectsEmptyFields(t *testing.T) {
	codec := NewCodec(FormatJSON)
	_, err := codec.Encode(models.StudentIdentity{StudentID: "   ", StudentName: "Alice"})
	require.Error(t, err)

	_, err = codec.Encode(models.StudentIdentity{StudentID: "007", StudentName: ""})
	require.Error(t, err)
}

func TestCodecDecodeRejectsGarbage(t *testing.T) {
	jsonCodec := NewCodec(FormatJSON)
	pipeCodec := NewCodec(FormatPipe)

	garbage := []string{
		"",
		"   ",
		"https://example.com/menu",
		"{not json",
		`{"id":"007","name":"Alice"}`,
		`{"p":"OTHER_APP","id":"007","name":"Alice"}`,
		`{"p":"FOP_ATTENDANCE","id":"","name":"Alice"}`,
		"007",
		"007|Alice|extra",
		"|Alice",
		"007|",
	}
	for _, raw := range garbage {
		assert.Nil(t, jsonCodec.Decode(raw), "json: %q", raw)
	}
	for _, raw := range garbage {
		assert.Nil(t, pipeCodec.Decode(raw), "pipe: %q", raw)
	}
}

func TestCodecFormatsAreIncompatible(t *testing.T) {
	jsonCodec := NewCodec(FormatJSON)
	pipeCodec := NewCodec(FormatPipe)

	jsonPayload, err := jsonCodec.Encode(models.StudentIdentity{StudentID: "007", StudentName: "Alice"})
	require.NoError(t, err)
	assert.Nil(t, pipeCodec.Decode(jsonPayload))

	pipePayload, err := pipeCodec.Encode(models.StudentIdentity{StudentID: "007", StudentName: "Alice"})
	require.NoError(t, err)
	assert.Nil(t, jsonCodec.Decode(pipePayload))
}

func TestCodecDefaultsToJSON(t *testing.T) {
	codec := NewCodec("")
	assert.Equal(t, FormatJSON, codec.Format())

	codec = NewCodec("bogus")
	assert.Equal(t, FormatJSON, codec.Format())
}

func TestImagePNGProducesPNG(t *testing.T) {
	codec := NewCodec(FormatJSON)
	png, err := codec.ImagePNG(models.StudentIdentity{StudentID: "007", StudentName: "Alice"}, 128)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
