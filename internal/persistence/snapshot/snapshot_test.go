package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	doc := []byte(`{"version":6,"state":{"population":12}}`)
	h := NewHeader(6, "local", "main", 1_760_000_000_000)
	require.NotEmpty(t, h.ExportID)

	b, err := Encode(h, doc)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "population", "body is compressed")

	gotH, gotDoc, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, h, gotH)
	assert.Equal(t, doc, gotDoc)
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "main.save.zst")
	doc := []byte(`{"version":6,"state":{}}`)
	h := NewHeader(6, "preview", "main", 42)

	require.NoError(t, WriteFile(path, h, doc))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	gotH, gotDoc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "preview", gotH.Namespace)
	assert.Equal(t, doc, gotDoc)
}

func TestDecode_Rejects(t *testing.T) {
	_, _, err := Decode([]byte("plain text"))
	assert.Error(t, err)

	b, err := Encode(Header{Version: 6}, nil)
	require.NoError(t, err)
	_, _, err = Decode(b)
	assert.Error(t, err)
}
