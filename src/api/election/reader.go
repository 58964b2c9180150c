package election

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/types"
)

// ScheduleView is the {date, time} shape callers submit and read back.
type ScheduleView struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type AnswerView struct {
	ID         uint64  `json:"id"`
	Text       string  `json:"text"`
	Position   int     `json:"position"`
	ExternalID string  `json:"externalId,omitempty"`
	ImageURL   *string `json:"imageUrl"`
}

type QuestionView struct {
	ID         uint64       `json:"id"`
	Text       string       `json:"text"`
	Type       string       `json:"type"`
	Required   bool         `json:"required"`
	AllowOther bool         `json:"allowOther"`
	CharLimit  int          `json:"charLimit"`
	Position   int          `json:"position"`
	ExternalID string       `json:"externalId,omitempty"`
	ImageURL   *string      `json:"imageUrl"`
	Answers    []AnswerView `json:"answers"`
}

type RewardView struct {
	Enabled     bool    `json:"enabled"`
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description *string `json:"description"`
	WinnerCount int     `json:"winnerCount"`
	Active      bool    `json:"active"`
}

type ElectionView struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	StartDate ScheduleView `json:"startDate"`
	EndDate   ScheduleView `json:"endDate"`
	Timezone  string       `json:"timezone"`

	VotingMethod   string `json:"votingMethod"`
	PermissionMode string `json:"permissionMode"`

	RequireLogin         bool `json:"requireLogin"`
	RequireVerifiedEmail bool `json:"requireVerifiedEmail"`
	Require2FA           bool `json:"require2fa"`

	Countries    []string           `json:"countries"`
	BaseFee      float64            `json:"baseFee"`
	RegionalFees map[string]float64 `json:"regionalFees"`

	IsPublic  bool `json:"isPublic"`
	AllowEdit bool `json:"allowEdit"`

	CustomCSS string            `json:"customCss"`
	Colors    map[string]string `json:"colors"`
	Language  string            `json:"language"`

	IsDraft     bool `json:"isDraft"`
	IsPublished bool `json:"isPublished"`

	CreatorID     string  `json:"creatorId"`
	TopicImageURL *string `json:"topicImageUrl"`
	LogoURL       *string `json:"logoUrl"`

	Questions []QuestionView `json:"questions"`
	Reward    *RewardView    `json:"reward"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reader reassembles the nested aggregate from flat relational rows.
type Reader struct{}

func NewReader() *Reader { return &Reader{} }

// electionRow is the flat shape of the election/reward left join. The
// election columns mirror types.Election field for field so the naming
// strategy keeps both sides in sync.
type electionRow struct {
	ID          uint64
	Title       string
	Description string

	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	Timezone  string

	VotingMethod   string
	PermissionMode string

	RequireLogin         bool
	RequireVerifiedEmail bool
	Require2FA           bool `gorm:"column:require_2fa"`

	Countries    datatypes.JSON
	BaseFee      float64
	RegionalFees datatypes.JSON

	IsPublic  bool
	AllowEdit bool

	CustomCSS string
	Colors    datatypes.JSON
	Language  string

	IsDraft     bool
	IsPublished bool

	CreatorID     string
	TopicImageURL *string
	LogoURL       *string

	CreatedAt time.Time
	UpdatedAt time.Time

	RewardID          *uint64  `gorm:"column:reward_id"`
	RewardEnabled     *bool    `gorm:"column:reward_enabled"`
	RewardKind        *string  `gorm:"column:reward_kind"`
	RewardAmount      *float64 `gorm:"column:reward_amount"`
	RewardDescription *string  `gorm:"column:reward_description"`
	RewardWinners     *int     `gorm:"column:reward_winners"`
	RewardActive      *bool    `gorm:"column:reward_active"`
}

type questionAnswerRow struct {
	QID         uint64  `gorm:"column:q_id"`
	QText       string  `gorm:"column:q_text"`
	QType       string  `gorm:"column:q_type"`
	QRequired   bool    `gorm:"column:q_required"`
	QAllowOther bool    `gorm:"column:q_allow_other"`
	QCharLimit  int     `gorm:"column:q_char_limit"`
	QPosition   int     `gorm:"column:q_position"`
	QExternalID string  `gorm:"column:q_external_id"`
	QImageURL   *string `gorm:"column:q_image_url"`

	AID         *uint64 `gorm:"column:a_id"`
	AText       *string `gorm:"column:a_text"`
	APosition   *int    `gorm:"column:a_position"`
	AExternalID *string `gorm:"column:a_external_id"`
	AImageURL   *string `gorm:"column:a_image_url"`
}

// Get returns the full nested aggregate, or ErrNotFound.
func (r *Reader) Get(db *gorm.DB, id uint64) (*ElectionView, error) {
	var row electionRow
	err := db.Table("elections").
		Select(`elections.*,
			reward_configs.id AS reward_id,
			reward_configs.enabled AS reward_enabled,
			reward_configs.kind AS reward_kind,
			reward_configs.amount AS reward_amount,
			reward_configs.description AS reward_description,
			reward_configs.winner_count AS reward_winners,
			reward_configs.active AS reward_active`).
		Joins("LEFT JOIN reward_configs ON reward_configs.election_id = elections.id").
		Where("elections.id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	view := r.buildElectionView(&row)

	var qaRows []questionAnswerRow
	err = db.Raw(`
		SELECT q.id AS q_id, q.text AS q_text, q.type AS q_type,
		       q.required AS q_required, q.allow_other AS q_allow_other,
		       q.char_limit AS q_char_limit, q.position AS q_position,
		       q.external_id AS q_external_id, q.image_url AS q_image_url,
		       a.id AS a_id, a.text AS a_text, a.position AS a_position,
		       a.external_id AS a_external_id, a.image_url AS a_image_url
		FROM questions q
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.election_id = ?
		ORDER BY q.position, a.position`, id).
		Scan(&qaRows).Error
	if err != nil {
		return nil, err
	}

	view.Questions = foldQuestions(qaRows)
	return view, nil
}

// foldQuestions collapses the ordered question/answer row stream into
// nested questions. A question appears once, on first sight; the left
// join keeps zero-answer questions in the stream with null answer
// columns, so they come out with an empty answer list.
func foldQuestions(rows []questionAnswerRow) []QuestionView {
	questions := make([]QuestionView, 0, len(rows))
	index := make(map[uint64]int)

	for _, row := range rows {
		pos, seen := index[row.QID]
		if !seen {
			questions = append(questions, QuestionView{
				ID:         row.QID,
				Text:       row.QText,
				Type:       row.QType,
				Required:   row.QRequired,
				AllowOther: row.QAllowOther,
				CharLimit:  row.QCharLimit,
				Position:   row.QPosition,
				ExternalID: row.QExternalID,
				ImageURL:   row.QImageURL,
				Answers:    []AnswerView{},
			})
			pos = len(questions) - 1
			index[row.QID] = pos
		}

		if row.AID == nil {
			continue
		}
		ans := AnswerView{
			ID:       *row.AID,
			Position: derefInt(row.APosition),
			ImageURL: row.AImageURL,
		}
		if row.AText != nil {
			ans.Text = *row.AText
		}
		if row.AExternalID != nil {
			ans.ExternalID = *row.AExternalID
		}
		questions[pos].Answers = append(questions[pos].Answers, ans)
	}

	return questions
}

func (r *Reader) buildElectionView(e *electionRow) *ElectionView {
	view := &ElectionView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,

		StartDate: ScheduleView{Date: e.StartDate, Time: e.StartTime},
		EndDate:   ScheduleView{Date: e.EndDate, Time: e.EndTime},
		Timezone:  e.Timezone,

		VotingMethod:   e.VotingMethod,
		PermissionMode: e.PermissionMode,

		RequireLogin:         e.RequireLogin,
		RequireVerifiedEmail: e.RequireVerifiedEmail,
		Require2FA:           e.Require2FA,

		Countries:    parseStringList(e.Countries),
		BaseFee:      e.BaseFee,
		RegionalFees: parseFeeMap(e.RegionalFees),

		IsPublic:  e.IsPublic,
		AllowEdit: e.AllowEdit,

		CustomCSS: e.CustomCSS,
		Colors:    parseColorMap(e.Colors),
		Language:  e.Language,

		IsDraft:     e.IsDraft,
		IsPublished: e.IsPublished,

		CreatorID:     e.CreatorID,
		TopicImageURL: e.TopicImageURL,
		LogoURL:       e.LogoURL,

		Questions: []QuestionView{},

		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	if e.RewardID != nil {
		view.Reward = &RewardView{
			Enabled:     derefBool(e.RewardEnabled),
			Kind:        derefString(e.RewardKind),
			Amount:      derefFloat(e.RewardAmount),
			Description: e.RewardDescription,
			WinnerCount: derefInt(e.RewardWinners),
			Active:      derefBool(e.RewardActive),
		}
	}

	return view
}

// ElectionSummary is the flat row shape for list responses.
type ElectionSummary struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	IsDraft     bool      `json:"isDraft"`
	IsPublished bool      `json:"isPublished"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ListFilter struct {
	Creator   string
	Published *bool
	Draft     *bool
	Page      int
	Limit     int
}

const maxListLimit = 100

// List is the plain filtered/paginated read; no assembly involved.
func (r *Reader) List(db *gorm.DB, f ListFilter) ([]ElectionSummary, int64, error) {
	q := db.Model(&types.Election{})
	if f.Creator != "" {
		q = q.Where("creator_id = ?", f.Creator)
	}
	if f.Published != nil {
		q = q.Where("is_published = ?", *f.Published)
	}
	if f.Draft != nil {
		q = q.Where("is_draft = ?", *f.Draft)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var out []ElectionSummary
	err := q.Select("id, title, start_date, end_date, is_draft, is_published, creator_id, created_at").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Scan(&out).Error
	return out, total, err
}

func parseStringList(raw datatypes.JSON) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func parseFeeMap(raw datatypes.JSON) map[string]float64 {
	out := map[string]float64{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func parseColorMap(raw datatypes.JSON) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func derefBool(v *bool) bool {
	return v != nil && *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
