package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConfigDetail holds the tunable fields of a config, 1:1 with configs.
// These are exactly the fields captured into a version snapshot.
type ConfigDetail struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	ConfigID    uint           `gorm:"uniqueIndex;not null" json:"-"`
	Resolution  string         `gorm:"size:20" json:"resolution"`
	GPUDriver   string         `gorm:"size:50" json:"gpu_driver"`
	DXWrapper   string         `gorm:"size:50" json:"dx_wrapper"`
	AudioDriver string         `gorm:"size:50" json:"audio_driver"`
	EnvVars     string         `gorm:"type:text" json:"env_vars"`
	LaunchArgs  string         `gorm:"type:text" json:"launch_args"`
	Components  datatypes.JSON `json:"components"` // ["dxvk-2.3", "vkd3d-proton", ...]
	Tags        datatypes.JSON `json:"tags"`       // ["performance", "handheld", ...]
	Notes       string         `gorm:"type:text" json:"notes"` // markdown
	UpdatedAt   time.Time      `json:"updated_at"`
}
