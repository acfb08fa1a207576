package store

import "fjacquet/fueltrack/internal/models"

// MockDictionaryLoader is a DictionaryLoader for tests.
type MockDictionaryLoader struct {
	Dictionary models.KeywordDictionary
	Err        error
	Calls      int
}

// LoadDictionary returns the configured dictionary or error.
func (m *MockDictionaryLoader) LoadDictionary() (models.KeywordDictionary, error) {
	m.Calls++
	if m.Err != nil {
		return models.KeywordDictionary{}, m.Err
	}
	if len(m.Dictionary.Entries) == 0 {
		return models.DefaultKeywordDictionary(), nil
	}
	return m.Dictionary, nil
}
