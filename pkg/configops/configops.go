// Package configops edits the JSON config file by dotted key path, the
// backing for `echobot config get|set`.
package configops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"echobot/pkg/config"
)

// LoadAsMap reads path as a generic object. A missing file yields the
// defaults so that set can create it.
func LoadAsMap(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = json.Marshal(config.DefaultConfig())
	}
	if err != nil {
		return nil, err
	}

	var cfgMap map[string]interface{}
	if err := json.Unmarshal(data, &cfgMap); err != nil {
		return nil, err
	}
	return cfgMap, nil
}

func NormalizePath(path string) string {
	p := strings.Trim(strings.TrimSpace(path), ".")
	return strings.ToLower(p)
}

// ParseValue maps true/false/null and numbers to their JSON types. Quotes
// force a string.
func ParseValue(raw string) interface{} {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
		return v[1 : len(v)-1]
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && strings.Contains(v, ".") {
		return f
	}
	return v
}

func SetByPath(root map[string]interface{}, path string, value interface{}) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	cur := root
	for _, key := range parts[:len(parts)-1] {
		next, ok := cur[key]
		if !ok {
			child := map[string]interface{}{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("path segment is not object: %s", key)
		}
		cur = child
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

func GetByPath(root map[string]interface{}, path string) (interface{}, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur interface{} = root
	for _, key := range parts {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid path: %s", path)
		}
	}
	return parts, nil
}

// Set updates one key in the config file at configPath. The result must
// still decode as a Config, so unknown keys and wrong types are rejected
// before anything is written. It returns the backup path ("" when the file
// did not exist yet).
func Set(configPath, key, raw string) (string, error) {
	cfgMap, err := LoadAsMap(configPath)
	if err != nil {
		return "", err
	}
	if err := SetByPath(cfgMap, NormalizePath(key), ParseValue(raw)); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(cfgMap, "", "  ")
	if err != nil {
		return "", err
	}
	if _, err := config.Decode(data); err != nil {
		return "", fmt.Errorf("rejected %s: %w", key, err)
	}
	return WriteAtomicWithBackup(configPath, data)
}

// WriteAtomicWithBackup copies the current file to <path>.bak, then
// replaces it through a temp file and rename.
func WriteAtomicWithBackup(configPath string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", err
	}

	backupPath := configPath + ".bak"
	oldData, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := os.WriteFile(backupPath, oldData, 0600); err != nil {
			return "", fmt.Errorf("write backup failed: %w", err)
		}
	case os.IsNotExist(err):
		backupPath = ""
	default:
		return "", fmt.Errorf("read existing config failed: %w", err)
	}

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return "", fmt.Errorf("write temp config failed: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("atomic replace config failed: %w", err)
	}
	return backupPath, nil
}
