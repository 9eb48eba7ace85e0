package catalogs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var lintTargets = []struct {
	doc    string
	schema string
}{
	{DailyTasksFile, "daily_tasks.schema.json"},
	{ShopFile, "maailma_shop.schema.json"},
	{BuildingsFile, "buildings.schema.json"},
}

// Lint validates the content documents in configDir against the JSON schemas
// in schemaDir. Loading never requires a clean lint; this is an authoring aid.
func Lint(configDir, schemaDir string) error {
	var errs []error
	for _, t := range lintTargets {
		s, err := jsonschema.Compile(filepath.Join(schemaDir, t.schema))
		if err != nil {
			return fmt.Errorf("compile %s: %w", t.schema, err)
		}
		raw, err := os.ReadFile(filepath.Join(configDir, t.doc))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.doc, err))
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.doc, err))
			continue
		}
		if err := s.Validate(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.doc, err))
		}
	}
	return errors.Join(errs...)
}
