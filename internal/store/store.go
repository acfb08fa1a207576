// Package store loads and saves the keyword dictionary that drives column mapping.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/fueltrack/internal/logging"
	"fjacquet/fueltrack/internal/models"
	"fjacquet/fueltrack/internal/parsererror"

	"gopkg.in/yaml.v3"
)

// DefaultKeywordsFile is looked up when no explicit file is configured.
const DefaultKeywordsFile = "keywords.yaml"

// DictionaryLoader provides the keyword dictionary.
type DictionaryLoader interface {
	LoadDictionary() (models.KeywordDictionary, error)
}

// KeywordStore reads the keyword dictionary from YAML, falling back to the built-in
// vocabulary when no file exists.
type KeywordStore struct {
	File   string
	logger logging.Logger
}

// NewKeywordStore creates a store for file. An empty file means DefaultKeywordsFile
// searched in the standard locations.
func NewKeywordStore(file string, logger logging.Logger) *KeywordStore {
	return &KeywordStore{File: file, logger: logging.OrDefault(logger)}
}

// keywordFile is the on-disk layout.
type keywordFile struct {
	Fields    []models.KeywordEntry `yaml:"fields"`
	DateHints []string              `yaml:"date_hints,omitempty"`
	TimeHints []string              `yaml:"time_hints,omitempty"`
}

// FindConfigFile looks for a configuration file in standard locations
func (s *KeywordStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join(".fueltrack", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".fueltrack", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadDictionary returns the configured dictionary. A missing default file yields the
// built-in dictionary; a missing explicit file or an invalid file is an error.
func (s *KeywordStore) LoadDictionary() (models.KeywordDictionary, error) {
	filename := s.File
	explicit := filename != ""
	if !explicit {
		filename = DefaultKeywordsFile
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			s.logger.Debug("No keywords file found, using built-in vocabulary")
			return models.DefaultKeywordDictionary(), nil
		}
		return models.KeywordDictionary{}, fmt.Errorf("keywords file %s: %w", filename, err)
	}

	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.KeywordDictionary{}, fmt.Errorf("error reading keywords file: %w", err)
	}

	parsed, err := parseKeywordFile(data)
	if err != nil {
		return models.KeywordDictionary{}, &parsererror.ValidationError{FilePath: filePath, Reason: err.Error()}
	}

	dict, err := models.NewKeywordDictionary(parsed.Fields, parsed.DateHints, parsed.TimeHints)
	if err != nil {
		return models.KeywordDictionary{}, &parsererror.ValidationError{FilePath: filePath, Reason: err.Error()}
	}

	s.logger.Info("Loaded keyword dictionary",
		logging.F(logging.FieldFile, filePath),
		logging.F(logging.FieldCount, len(dict.Entries)))
	return dict, nil
}

// parseKeywordFile accepts the canonical layout ("fields: [{field, keywords}]") and a
// shorthand mapping of field name to keyword list, whose key order is kept.
func parseKeywordFile(data []byte) (keywordFile, error) {
	var canonical keywordFile
	if err := yaml.Unmarshal(data, &canonical); err == nil && len(canonical.Fields) > 0 {
		return canonical, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return keywordFile{}, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return keywordFile{}, fmt.Errorf("expected a mapping of fields to keywords")
	}

	var out keywordFile
	mapping := root.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var keywords []string
		if err := mapping.Content[i+1].Decode(&keywords); err != nil {
			return keywordFile{}, fmt.Errorf("field %q: expected a list of keywords: %w", key, err)
		}
		switch key {
		case "date_hints":
			out.DateHints = keywords
		case "time_hints":
			out.TimeHints = keywords
		default:
			out.Fields = append(out.Fields, models.KeywordEntry{Field: models.Field(key), Keywords: keywords})
		}
	}
	return out, nil
}

// SaveDictionary writes dict to path in the canonical layout.
func (s *KeywordStore) SaveDictionary(dict models.KeywordDictionary, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}

	data, err := yaml.Marshal(keywordFile{Fields: dict.Entries, DateHints: dict.DateHints, TimeHints: dict.TimeHints})
	if err != nil {
		return fmt.Errorf("error marshaling keywords: %w", err)
	}

	if err := os.WriteFile(path, data, models.PermissionConfigFile); err != nil {
		return fmt.Errorf("error writing keywords file: %w", err)
	}

	s.logger.Debug("Saved keyword dictionary", logging.F(logging.FieldFile, path))
	return nil
}
