// Package snapshot frames save documents for storage: a JSON header line
// followed by the document body, the whole stream zstd-compressed.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version   int    `json:"version"`
	Namespace string `json:"namespace"`
	Slot      string `json:"slot"`
	SavedAt   int64  `json:"saved_at"`
	ExportID  string `json:"export_id"`
}

// NewHeader stamps a fresh export id.
func NewHeader(version int, namespace, slot string, savedAt int64) Header {
	return Header{
		Version:   version,
		Namespace: namespace,
		Slot:      slot,
		SavedAt:   savedAt,
		ExportID:  uuid.NewString(),
	}
}

func write(w io.Writer, h Header, doc []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(doc); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func read(r io.Reader) (Header, []byte, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("decode header: %w", err)
	}
	doc, err := io.ReadAll(br)
	if err != nil {
		return h, nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(doc)) == 0 {
		return h, nil, errors.New("snapshot: empty body")
	}
	return h, doc, nil
}

func Encode(h Header, doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, h, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(b []byte) (Header, []byte, error) {
	return read(bytes.NewReader(b))
}

// WriteFile writes through a temp file and renames it into place.
func WriteFile(path string, h Header, doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := write(f, h, doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadFile(path string) (Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	return read(f)
}
