package types

import (
	"time"

	"gorm.io/datatypes"
)

// Question types
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionOpenText       = "open_text"
	QuestionImageBased     = "image_based"
	QuestionComparison     = "comparison"
)

// Reward kinds
const (
	RewardMonetary    = "monetary"
	RewardNonMonetary = "non_monetary"
)

// Media attachment slots
const (
	SlotTopic    = "topic"
	SlotLogo     = "logo"
	SlotQuestion = "question"
	SlotAnswer   = "answer"
)

// Elections
type Election struct {
	ID          uint64 `gorm:"primaryKey"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`

	StartDate string `gorm:"size:10;not null"` // YYYY-MM-DD
	StartTime string `gorm:"size:5;not null"`  // HH:MM
	EndDate   string `gorm:"size:10;not null"`
	EndTime   string `gorm:"size:5;not null"`
	Timezone  string `gorm:"size:64;not null;default:UTC"`

	VotingMethod   string `gorm:"size:32;not null"`
	PermissionMode string `gorm:"size:32"`

	RequireLogin         bool `gorm:"default:true"`
	RequireVerifiedEmail bool `gorm:"default:true"`
	Require2FA           bool `gorm:"column:require_2fa;default:false"`

	Countries    datatypes.JSON `gorm:"type:json"`
	BaseFee      float64        `gorm:"default:0"`
	RegionalFees datatypes.JSON `gorm:"type:json"`

	IsPublic  bool `gorm:"default:true"`
	AllowEdit bool `gorm:"default:true"`

	CustomCSS string         `gorm:"type:text"`
	Colors    datatypes.JSON `gorm:"type:json"`
	Language  string         `gorm:"size:16"`

	IsDraft     bool `gorm:"default:true"`
	IsPublished bool `gorm:"default:false"`

	CreatorID     string  `gorm:"size:128;index;not null"`
	TopicImageURL *string `gorm:"size:512"`
	LogoURL       *string `gorm:"size:512"`

	Questions []Question `gorm:"foreignKey:ElectionID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Questions, ordered within their election by Position (1-based)
type Question struct {
	ID         uint64 `gorm:"primaryKey"`
	ElectionID uint64 `gorm:"index;not null"`
	Text       string `gorm:"type:text;not null"`
	Type       string `gorm:"size:32;not null"`
	Required   bool   `gorm:"default:false"`
	AllowOther bool   `gorm:"default:false"`
	CharLimit  int    `gorm:"default:0"`
	Position   int    `gorm:"not null"`
	// ExternalID is the caller-supplied correlation id used to match
	// uploaded media files to this question before it has a row id.
	ExternalID string  `gorm:"size:64"`
	ImageURL   *string `gorm:"size:512"`

	Answers []Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// Answers, ordered within their question by Position (1-based)
type Answer struct {
	ID         uint64  `gorm:"primaryKey"`
	QuestionID uint64  `gorm:"index;not null"`
	Text       string  `gorm:"size:500;not null"`
	Position   int     `gorm:"not null"`
	ExternalID string  `gorm:"size:64"`
	ImageURL   *string `gorm:"size:512"`
}

// Reward / lottery configuration, at most one per election.
// Monetary rewards carry no description; non-monetary rewards always
// carry a non-empty one.
type RewardConfig struct {
	ID          uint64 `gorm:"primaryKey"`
	ElectionID  uint64 `gorm:"uniqueIndex;not null"`
	Enabled     bool   `gorm:"default:false"`
	Kind        string `gorm:"size:16"`
	Amount      float64
	Description *string `gorm:"size:500"`
	WinnerCount int     `gorm:"default:1"`
	Active      bool    `gorm:"default:true"`
}

// Provenance log of uploaded assets. QuestionID/AnswerID are set only
// for question/answer slots.
type MediaAttachment struct {
	ID         uint64  `gorm:"primaryKey"`
	ElectionID uint64  `gorm:"index;not null"`
	Slot       string  `gorm:"size:16;not null"`
	StorageID  string  `gorm:"size:255;not null"`
	URL        string  `gorm:"size:512;not null"`
	Filename   string  `gorm:"size:255"`
	QuestionID *uint64 `gorm:"index"`
	AnswerID   *uint64
	CreatedAt  time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:64;unique;not null"`
	Value string `gorm:"size:512;not null"`
}
