package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ConfigVersion is one entry of a config's append-only history. Rows are
// inserted on create, edit and revert, and are never updated or deleted
// except by cascade from a hard config delete. VersionNumber starts at 1 and
// grows by exactly 1 per accepted write; the composite unique index is what
// makes concurrent writers collide instead of minting duplicate numbers.
type ConfigVersion struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ConfigID      uint           `gorm:"not null;index;uniqueIndex:idx_config_version_number" json:"config_id"`
	Config        Config         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	VersionNumber int            `gorm:"not null;uniqueIndex:idx_config_version_number" json:"version_number"`
	Snapshot      datatypes.JSON `json:"snapshot"`
	Summary       string         `gorm:"size:200;not null" json:"summary"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ConfigSnapshot is the full set of tunable fields frozen into a version.
// Unmarshalling an older snapshot that predates a field leaves that field at
// its zero value, so reverts always produce a fully-defined detail row.
type ConfigSnapshot struct {
	GamehubVersion string   `json:"gamehub_version"`
	VideoURL       *string  `json:"video_url"`
	Resolution     string   `json:"resolution"`
	GPUDriver      string   `json:"gpu_driver"`
	DXWrapper      string   `json:"dx_wrapper"`
	AudioDriver    string   `json:"audio_driver"`
	EnvVars        string   `json:"env_vars"`
	LaunchArgs     string   `json:"launch_args"`
	Components     []string `json:"components"`
	Tags           []string `json:"tags"`
	Notes          string   `json:"notes"`
}

// SnapshotOf freezes the current state of a config and its detail row.
func SnapshotOf(cfg *Config, detail *ConfigDetail) ConfigSnapshot {
	return ConfigSnapshot{
		GamehubVersion: cfg.GamehubVersion,
		VideoURL:       cfg.VideoURL,
		Resolution:     detail.Resolution,
		GPUDriver:      detail.GPUDriver,
		DXWrapper:      detail.DXWrapper,
		AudioDriver:    detail.AudioDriver,
		EnvVars:        detail.EnvVars,
		LaunchArgs:     detail.LaunchArgs,
		Components:     DecodeStringList(detail.Components),
		Tags:           DecodeStringList(detail.Tags),
		Notes:          detail.Notes,
	}
}

// Apply copies the snapshot onto the live config and detail rows. Nil slices
// become empty lists so reverted rows never carry JSON null.
func (s ConfigSnapshot) Apply(cfg *Config, detail *ConfigDetail) {
	cfg.GamehubVersion = s.GamehubVersion
	cfg.VideoURL = s.VideoURL
	detail.Resolution = s.Resolution
	detail.GPUDriver = s.GPUDriver
	detail.DXWrapper = s.DXWrapper
	detail.AudioDriver = s.AudioDriver
	detail.EnvVars = s.EnvVars
	detail.LaunchArgs = s.LaunchArgs
	detail.Components = EncodeStringList(s.Components)
	detail.Tags = EncodeStringList(s.Tags)
	detail.Notes = s.Notes
}

// Encode marshals the snapshot for storage on a ConfigVersion row.
func (s ConfigSnapshot) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeSnapshot parses a stored snapshot. Missing fields fall back to zero
// values rather than failing, so old snapshots stay revertable.
func DecodeSnapshot(raw datatypes.JSON) (ConfigSnapshot, error) {
	var s ConfigSnapshot
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ConfigSnapshot{}, err
	}
	return s, nil
}

// EncodeStringList marshals a tag/component list into a JSON column,
// normalizing nil to an empty array.
func EncodeStringList(list []string) datatypes.JSON {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// DecodeStringList parses a JSON column back into a list; malformed or empty
// columns decode as an empty list.
func DecodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return []string{}
	}
	return list
}
