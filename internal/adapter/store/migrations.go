package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"repolens/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when the stored reply format changes.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keySettingsHash  = []byte("settings_hash")
)

// SchemaInfo stores schema version and the hash of the settings that
// produced the cached replies.
type SchemaInfo struct {
	Version      int    `json:"version"`
	SettingsHash string `json:"settings_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				info.Version = 0
			}
		}
		if data := b.Get(keySettingsHash); data != nil {
			info.SettingsHash = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keySettingsHash, []byte(info.SettingsHash))
	})
}

// SettingsHash hashes everything that changes what a model would reply to
// the same prompt. promptVersion identifies the prompt template.
func SettingsHash(model config.ModelConfig, promptVersion string) string {
	relevant := struct {
		Provider      string  `json:"provider"`
		Model         string  `json:"model"`
		Deployment    string  `json:"deployment"`
		Temperature   float64 `json:"temperature"`
		MaxTokens     int     `json:"max_tokens"`
		PromptVersion string  `json:"prompt_version"`
	}{
		Provider:      model.Provider,
		Model:         model.Model,
		Deployment:    model.Deployment,
		Temperature:   model.Temperature,
		MaxTokens:     model.MaxTokens,
		PromptVersion: promptVersion,
	}
	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsClear bool
	OldVersion int
	NewVersion int
	Reason     string
}

func (s *BoltStore) CheckMigration(settingsHash string) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{OldVersion: info.Version, NewVersion: CurrentSchemaVersion}
	switch {
	case info.Version == 0:
		result.Reason = "initializing schema version"
		result.NeedsClear = s.Len() > 0
	case info.Version != CurrentSchemaVersion:
		result.NeedsClear = true
		result.Reason = fmt.Sprintf("schema changed from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.SettingsHash != settingsHash:
		result.NeedsClear = true
		result.Reason = "model settings changed"
	}
	return result, nil
}

// Migrate clears stale replies when the schema or settings changed, then
// records the current version and settings.
func (s *BoltStore) Migrate(settingsHash string) (*MigrationResult, error) {
	result, err := s.CheckMigration(settingsHash)
	if err != nil {
		return nil, err
	}
	if result.NeedsClear {
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion, SettingsHash: settingsHash}); err != nil {
		return nil, err
	}
	return result, nil
}

// Clear removes every stored reply.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCompletions); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketCompletions)
		return err
	})
}
