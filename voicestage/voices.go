package voicestage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Default cast (fallback when Voices.json missing or invalid). Voice ids
// are Gemini prebuilt voice names.
var defaultCast = map[string]string{
	"Krishna":  "charon",
	"Radha":    "kore",
	"Ganesha":  "angus",
	"Narrator": "brian",
	"Friend1":  "amber",
	"Friend2":  "ethan",
}

type castItem struct {
	Character string `json:"character"`
	Voice     string `json:"voice"`
}

type castEnvelope struct {
	GeneratedAt string     `json:"generated_at"`
	Cast        []castItem `json:"cast"`
}

type castMapEnvelope struct {
	GeneratedAt string            `json:"generated_at"`
	Cast        map[string]string `json:"cast"`
}

// Registry maps character names to voice identifiers. Character match is
// exact: "krishna" and "Krishna" are different characters.
type Registry struct {
	voices map[string]string
}

func NewRegistry(voices map[string]string) (*Registry, error) {
	normalized, err := normalizeCastMap(voices)
	if err != nil {
		return nil, err
	}
	return &Registry{voices: normalized}, nil
}

// Resolve returns the configured voice id for a character. An unknown
// character is a per-line error, never a startup one.
func (r *Registry) Resolve(character string) (string, error) {
	voice, ok := r.voices[character]
	if !ok {
		return "", fmt.Errorf("character '%s' not configured", character)
	}
	return voice, nil
}

func (r *Registry) Len() int {
	return len(r.voices)
}

// Characters returns the configured character names, sorted.
func (r *Registry) Characters() []string {
	names := make([]string, 0, len(r.voices))
	for name := range r.voices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cast returns a copy of the character to voice mapping.
func (r *Registry) Cast() map[string]string {
	out := make(map[string]string, len(r.voices))
	for name, voice := range r.voices {
		out[name] = voice
	}
	return out
}

func castFilePath(configDir string) string {
	dir := strings.TrimSpace(configDir)
	if dir == "" || dir == "." {
		return "Voices.json"
	}
	return filepath.Join(dir, "Voices.json")
}

func normalizeCastMap(in map[string]string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, errors.New("cast is empty")
	}
	out := make(map[string]string, len(in))
	for character, voice := range in {
		c := strings.TrimSpace(character)
		v := strings.TrimSpace(voice)
		if c == "" || v == "" {
			return nil, fmt.Errorf("invalid cast entry: character=%q voice=%q", character, voice)
		}
		out[c] = v
	}
	return out, nil
}

func normalizeCastItems(items []castItem) (map[string]string, error) {
	if len(items) == 0 {
		return nil, errors.New("cast is empty")
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		c := strings.TrimSpace(item.Character)
		v := strings.TrimSpace(item.Voice)
		if c == "" || v == "" {
			return nil, fmt.Errorf("invalid cast item: character=%q voice=%q", item.Character, item.Voice)
		}
		if _, dup := out[c]; dup {
			return nil, fmt.Errorf("duplicate character: %q", c)
		}
		out[c] = v
	}
	return out, nil
}

// parseCastJSON accepts the envelope form written by writeCastFile plus the
// looser shapes operators tend to hand-edit: a bare map, a bare item list,
// or a {"cast": {...}} wrapper.
func parseCastJSON(data []byte) (map[string]string, time.Time, bool, error) {
	var env castEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Cast) > 0 {
		cast, err := normalizeCastItems(env.Cast)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		ts, hasTS, err := parseGeneratedAt(env.GeneratedAt)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		return cast, ts, hasTS, nil
	}
	var envMap castMapEnvelope
	if err := json.Unmarshal(data, &envMap); err == nil && len(envMap.Cast) > 0 {
		cast, err := normalizeCastMap(envMap.Cast)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		ts, hasTS, err := parseGeneratedAt(envMap.GeneratedAt)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		return cast, ts, hasTS, nil
	}
	var items []castItem
	if err := json.Unmarshal(data, &items); err == nil && len(items) > 0 {
		cast, err := normalizeCastItems(items)
		return cast, time.Time{}, false, err
	}
	var castMap map[string]string
	if err := json.Unmarshal(data, &castMap); err == nil && len(castMap) > 0 {
		cast, err := normalizeCastMap(castMap)
		return cast, time.Time{}, false, err
	}
	return nil, time.Time{}, false, errors.New("invalid cast json")
}

func parseGeneratedAt(value string) (time.Time, bool, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid generated_at: %w", err)
	}
	return ts, true, nil
}

func loadCastFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cast, _, _, err := parseCastJSON(data)
	return cast, err
}

func writeCastFile(path string, cast map[string]string) error {
	if len(cast) == 0 {
		return errors.New("cast is empty")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(cast))
	for name := range cast {
		names = append(names, name)
	}
	sort.Strings(names)
	list := make([]castItem, 0, len(names))
	for _, name := range names {
		list = append(list, castItem{
			Character: name,
			Voice:     cast[name],
		})
	}
	file := castEnvelope{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Cast:        list,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

// loadRegistry reads Voices.json from configDir, falling back to the
// built-in default cast, which is then written back so operators have a
// file to edit. The returned string names the source ("file" or "default").
func loadRegistry(configDir string) (*Registry, string, error) {
	castPath := castFilePath(configDir)
	cast, err := loadCastFromFile(castPath)
	if err == nil {
		reg, err := NewRegistry(cast)
		return reg, "file", err
	}
	if !os.IsNotExist(err) {
		appLog.Warn().Err(err).Str("path", castPath).Msg("Voices.json invalid")
	}
	reg, err := NewRegistry(defaultCast)
	if err != nil {
		return nil, "", err
	}
	if err := writeCastFile(castPath, reg.Cast()); err != nil {
		appLog.Warn().Err(err).Str("path", castPath).Msg("write Voices.json failed")
	}
	return reg, "default", nil
}
