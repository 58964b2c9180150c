package election

import (
	"encoding/json"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/types"
)

// Writer persists the mandatory part of the aggregate: the election row
// plus every question and answer, in input order. It must run inside a
// transaction owned by the caller; any insert failure aborts the whole
// unit.
type Writer struct {
	sanitizer *bluemonday.Policy
}

func NewWriter() *Writer {
	return &Writer{sanitizer: bluemonday.StrictPolicy()}
}

// CreateAggregate inserts the election and its children using tx. The
// returned election has Questions (and their Answers) populated with
// generated ids so the attacher can match uploads by external id.
func (w *Writer) CreateAggregate(tx *gorm.DB, creator string, in *CreateElectionInput) (*types.Election, error) {
	e := w.buildElection(creator, in)

	if err := tx.Create(e).Error; err != nil {
		return nil, classifyConstraint(err)
	}

	for qi, qin := range in.Questions {
		q := types.Question{
			ElectionID: e.ID,
			Text:       w.sanitizer.Sanitize(qin.Text),
			Type:       qin.Type,
			Required:   qin.Required,
			AllowOther: qin.AllowOther,
			CharLimit:  qin.CharLimit,
			Position:   qi + 1,
			ExternalID: qin.ExternalID,
		}
		if q.Type == "" {
			q.Type = types.QuestionMultipleChoice
		}
		if err := tx.Create(&q).Error; err != nil {
			return nil, classifyConstraint(err)
		}

		for ai, ain := range qin.Answers {
			a := types.Answer{
				QuestionID: q.ID,
				Text:       w.sanitizer.Sanitize(ain.Text),
				Position:   ai + 1,
				ExternalID: ain.ExternalID,
			}
			if err := tx.Create(&a).Error; err != nil {
				return nil, classifyConstraint(err)
			}
			q.Answers = append(q.Answers, a)
		}

		e.Questions = append(e.Questions, q)
	}

	return e, nil
}

func (w *Writer) buildElection(creator string, in *CreateElectionInput) *types.Election {
	startDate, startTime := normalizeSchedule(in.StartDate, DefaultStartTime)
	endDate, endTime := normalizeSchedule(in.EndDate, DefaultEndTime)

	tz := in.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}

	method := in.VotingMethod
	if method == "" {
		method = "single_choice"
	}

	return &types.Election{
		Title:       w.sanitizer.Sanitize(in.Title),
		Description: w.sanitizer.Sanitize(in.Description),

		StartDate: startDate,
		StartTime: startTime,
		EndDate:   endDate,
		EndTime:   endTime,
		Timezone:  tz,

		VotingMethod:   method,
		PermissionMode: in.PermissionMode,

		RequireLogin:         boolOr(in.RequireLogin, true),
		RequireVerifiedEmail: boolOr(in.RequireVerifiedEmail, true),
		Require2FA:           boolOr(in.Require2FA, false),

		Countries:    jsonColumn([]string(in.Countries), "[]"),
		BaseFee:      in.BaseFee,
		RegionalFees: jsonColumn(map[string]float64(in.RegionalFees), "{}"),

		IsPublic:  boolOr(in.IsPublic, true),
		AllowEdit: boolOr(in.AllowEdit, true),

		CustomCSS: in.CustomCSS,
		Colors:    jsonColumn(map[string]string(in.Colors), "{}"),
		Language:  in.Language,

		IsDraft:     boolOr(in.IsDraft, true),
		IsPublished: boolOr(in.IsPublished, false),

		CreatorID: creator,
	}
}

func normalizeSchedule(f *FlexDateTime, defaultTime string) (date, tm string) {
	if f == nil {
		return "", defaultTime
	}
	tm = f.Time
	if tm == "" {
		tm = defaultTime
	}
	return f.Date, tm
}

// jsonColumn encodes v for a JSON column, substituting empty for nil so
// readers never see SQL NULL collections.
func jsonColumn(v interface{}, empty string) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(b)
}
