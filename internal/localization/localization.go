// Package localization loads the message templates used for outgoing
// notifications. Each <lang>.json file in a directory is one language; keys
// missing from a language resolve through DefaultLang.
package localization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fixitfast/backend/internal/models"
)

// DefaultLang is consulted when a key is absent from the requested language.
const DefaultLang = "en"

// NotificationKeys are the templates every shipped language must define.
var NotificationKeys = []string{"notify_created", "notify_status", "notify_note"}

// Localizer holds message templates per language.
type Localizer struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
}

// NewLocalizer loads every *.json file in dir.
func NewLocalizer(dir string) (*Localizer, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	l := &Localizer{translations: make(map[string]map[string]string, len(paths))}
	for _, p := range paths {
		if err := l.loadFile(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Localizer) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read localization file %s: %w", filepath.Base(path), err)
	}

	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("failed to parse localization file %s: %w", filepath.Base(path), err)
	}

	lang := strings.TrimSuffix(filepath.Base(path), ".json")
	l.mu.Lock()
	l.translations[lang] = messages
	l.mu.Unlock()
	return nil
}

func (l *Localizer) lookup(lang, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if v, ok := l.translations[lang][key]; ok {
		return v, true
	}
	v, ok := l.translations[DefaultLang][key]
	return v, ok
}

// GetString returns the template for key in lang, or key itself when no
// language defines it.
func (l *Localizer) GetString(lang, key string) string {
	if v, ok := l.lookup(lang, key); ok {
		return v
	}
	return key
}

// Format fills the template for key with args.
func (l *Localizer) Format(lang, key string, args ...interface{}) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// StatusName is the display name of a complaint status.
func (l *Localizer) StatusName(lang string, s models.Status) string {
	if v, ok := l.lookup(lang, "status_"+string(s)); ok {
		return v
	}
	return string(s)
}

// Has reports whether translations for lang were loaded.
func (l *Localizer) Has(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.translations[lang]
	return ok
}

// Missing lists, per language, the keys that language does not define itself.
// Languages without gaps are omitted.
func (l *Localizer) Missing(keys ...string) map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string][]string)
	for lang, messages := range l.translations {
		for _, k := range keys {
			if _, ok := messages[k]; !ok {
				out[lang] = append(out[lang], k)
			}
		}
		sort.Strings(out[lang])
		if len(out[lang]) == 0 {
			delete(out, lang)
		}
	}
	return out
}
