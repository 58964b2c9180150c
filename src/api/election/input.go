package election

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scheduling defaults applied when the caller omits times or timezone.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "18:00"
	DefaultTimezone  = "UTC"
)

// FlexDateTime accepts either a plain string ("2026-05-01",
// "2026-05-01 09:30", "2026-05-01T09:30") or a {date, time} object.
// It is normalized here, at the boundary; nothing deeper in the
// pipeline branches on the submitted shape.
type FlexDateTime struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (f *FlexDateTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		sep := " "
		if strings.Contains(s, "T") {
			sep = "T"
		}
		parts := strings.SplitN(s, sep, 2)
		f.Date = parts[0]
		if len(parts) == 2 {
			f.Time = clipTime(parts[1])
		}
		return nil
	}

	type alias FlexDateTime
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	f.Date = a.Date
	f.Time = clipTime(a.Time)
	return nil
}

// clipTime reduces HH:MM:SS (and timezone suffixes) to HH:MM.
func clipTime(t string) string {
	t = strings.TrimSpace(t)
	if len(t) > 5 {
		t = t[:5]
	}
	return t
}

// StringList accepts a JSON array or the same array JSON-encoded as a
// string, which is how multipart clients tend to send nested fields.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*s = nil
			return nil
		}
		return json.Unmarshal([]byte(raw), (*[]string)(s))
	}
	return json.Unmarshal(b, (*[]string)(s))
}

// FeeMap maps region codes to fee amounts; same dual decoding.
type FeeMap map[string]float64

func (m *FeeMap) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = nil
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*m = nil
			return nil
		}
		return json.Unmarshal([]byte(raw), (*map[string]float64)(m))
	}
	return json.Unmarshal(b, (*map[string]float64)(m))
}

// ColorMap maps style keys to color values; same dual decoding.
type ColorMap map[string]string

func (m *ColorMap) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = nil
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*m = nil
			return nil
		}
		return json.Unmarshal([]byte(raw), (*map[string]string)(m))
	}
	return json.Unmarshal(b, (*map[string]string)(m))
}

// QuestionList accepts the question array either inline or
// JSON-encoded as a string.
type QuestionList []QuestionInput

func (q *QuestionList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*q = nil
		return nil
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*q = nil
			return nil
		}
		return json.Unmarshal([]byte(raw), (*[]QuestionInput)(q))
	}
	return json.Unmarshal(b, (*[]QuestionInput)(q))
}

type AnswerInput struct {
	Text       string `json:"text"`
	ExternalID string `json:"externalId"`
}

type QuestionInput struct {
	Text       string        `json:"text"`
	Type       string        `json:"type"`
	Required   bool          `json:"required"`
	AllowOther bool          `json:"allowOther"`
	CharLimit  int           `json:"charLimit"`
	ExternalID string        `json:"externalId"`
	Answers    []AnswerInput `json:"answers"`
}

type RewardInput struct {
	Enabled     *bool   `json:"enabled"`
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	WinnerCount int     `json:"winnerCount"`
	Active      *bool   `json:"active"`
}

// CreateElectionInput is the full creation payload. Boolean toggles are
// pointers so an explicit false survives the default policy.
type CreateElectionInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	StartDate *FlexDateTime `json:"startDate"`
	EndDate   *FlexDateTime `json:"endDate"`
	Timezone  string        `json:"timezone"`

	VotingMethod   string `json:"votingMethod"`
	PermissionMode string `json:"permissionMode"`

	RequireLogin         *bool `json:"requireLogin"`
	RequireVerifiedEmail *bool `json:"requireVerifiedEmail"`
	Require2FA           *bool `json:"require2fa"`

	Countries    StringList `json:"countries"`
	BaseFee      float64    `json:"baseFee"`
	RegionalFees FeeMap     `json:"regionalFees"`

	IsPublic  *bool `json:"isPublic"`
	AllowEdit *bool `json:"allowEdit"`

	CustomCSS string   `json:"customCss"`
	Colors    ColorMap `json:"colors"`
	Language  string   `json:"language"`

	IsDraft     *bool `json:"isDraft"`
	IsPublished *bool `json:"isPublished"`

	Questions QuestionList `json:"questions"`
	Reward    *RewardInput `json:"reward"`
}

var questionTypes = map[string]bool{
	"multiple_choice": true,
	"open_text":       true,
	"image_based":     true,
	"comparison":      true,
}

func (in *CreateElectionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if in.StartDate == nil || in.StartDate.Date == "" {
		return &ValidationError{Field: "startDate", Reason: "required"}
	}
	if in.EndDate == nil || in.EndDate.Date == "" {
		return &ValidationError{Field: "endDate", Reason: "required"}
	}
	for i, q := range in.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return &ValidationError{Field: fmt.Sprintf("questions[%d].text", i), Reason: "required"}
		}
		if q.Type != "" && !questionTypes[q.Type] {
			return &ValidationError{Field: fmt.Sprintf("questions[%d].type", i), Reason: "unknown question type " + q.Type}
		}
		for j, a := range q.Answers {
			if strings.TrimSpace(a.Text) == "" {
				return &ValidationError{Field: fmt.Sprintf("questions[%d].answers[%d].text", i, j), Reason: "required"}
			}
		}
	}
	if in.Reward != nil && in.Reward.Kind != "" &&
		in.Reward.Kind != "monetary" && in.Reward.Kind != "non_monetary" {
		return &ValidationError{Field: "reward.kind", Reason: "must be monetary or non_monetary"}
	}
	return nil
}

// UpdateElectionInput carries only the fields the update path may
// touch. The write set is built from this explicit allow-list; keys
// outside it never reach the database.
type UpdateElectionInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	StartDate *FlexDateTime `json:"startDate"`
	EndDate   *FlexDateTime `json:"endDate"`
	Timezone  *string       `json:"timezone"`

	VotingMethod   *string `json:"votingMethod"`
	PermissionMode *string `json:"permissionMode"`

	RequireLogin         *bool `json:"requireLogin"`
	RequireVerifiedEmail *bool `json:"requireVerifiedEmail"`
	Require2FA           *bool `json:"require2fa"`

	Countries    *StringList `json:"countries"`
	BaseFee      *float64    `json:"baseFee"`
	RegionalFees *FeeMap     `json:"regionalFees"`

	IsPublic  *bool `json:"isPublic"`
	AllowEdit *bool `json:"allowEdit"`

	CustomCSS *string   `json:"customCss"`
	Colors    *ColorMap `json:"colors"`
	Language  *string   `json:"language"`

	IsDraft     *bool `json:"isDraft"`
	IsPublished *bool `json:"isPublished"`
}

// boolOr applies the tri-state toggle policy: an explicit value always
// wins, absence falls back to the feature default.
func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
