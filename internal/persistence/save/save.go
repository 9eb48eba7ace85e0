// Package save defines the persisted save document and the migration chain
// that brings old documents up to CurrentVersion.
package save

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/model"
)

const CurrentVersion = 6

var (
	// ErrCorruptSave marks a document whose history cannot be trusted. Decode
	// still returns a default state alongside it.
	ErrCorruptSave = errors.New("save: corrupt save discarded")
	// ErrUnknownVersion is returned for documents written by a newer build.
	ErrUnknownVersion = errors.New("save: unknown save version")
)

type Document struct {
	Version int              `json:"version"`
	State   *model.GameState `json:"state"`
}

func Encode(s *model.GameState) ([]byte, error) {
	if s == nil {
		return nil, errors.New("save: nil state")
	}
	return json.Marshal(Document{Version: CurrentVersion, State: s})
}

// Decode parses a save document of any known version. The returned version
// is the one the document was written with. A corrupt document yields a
// default state together with ErrCorruptSave.
func Decode(raw []byte) (*model.GameState, int, error) {
	var top map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&top); err != nil {
		return nil, 0, fmt.Errorf("save: parse document: %w", err)
	}

	version := 1
	state := top
	if v, ok := top["version"]; ok {
		n, ok := number(v)
		if !ok {
			return nil, 0, fmt.Errorf("save: bad version %v", v)
		}
		version = int(n)
		inner, ok := top["state"].(map[string]any)
		if !ok {
			return nil, version, fmt.Errorf("save: v%d document without state", version)
		}
		state = inner
	}

	migrated, err := Migrate(version, state)
	if errors.Is(err, ErrCorruptSave) {
		return model.NewGameState(), version, err
	}
	if err != nil {
		return nil, version, err
	}

	b, err := json.Marshal(migrated)
	if err != nil {
		return nil, version, fmt.Errorf("save: re-encode migrated state: %w", err)
	}
	s := model.NewGameState()
	if err := json.Unmarshal(b, s); err != nil {
		return nil, version, fmt.Errorf("save: decode v%d state: %w", CurrentVersion, err)
	}
	s.Normalize()
	return s, version, nil
}

// StorageKey names a save slot inside a deployment namespace. Two namespaces
// never produce the same key.
func StorageKey(namespace, slot string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "local"
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = "main"
	}
	return "suomidle:" + namespace + ":save:" + slot
}
