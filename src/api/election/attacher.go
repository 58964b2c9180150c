package election

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/data"
	"github.com/openballot/election-api/src/api/media"
	"github.com/openballot/election-api/src/api/types"
)

const defaultRewardDescription = "Participation reward"

// Upload is one binary attachment taken from the request.
type Upload struct {
	Filename string
	Content  []byte
}

// MediaBundle groups the request's attachments by logical slot.
// Question and answer images are matched to their owner by the owner's
// external id appearing in the filename.
type MediaBundle struct {
	TopicImage     *Upload
	Logo           *Upload
	QuestionImages []Upload
	AnswerImages   []Upload
}

func (b *MediaBundle) Empty() bool {
	return b == nil || (b.TopicImage == nil && b.Logo == nil &&
		len(b.QuestionImages) == 0 && len(b.AnswerImages) == 0)
}

// Attacher runs the best-effort phase: reward configuration and media
// uploads. Every sub-routine is isolated; a failure here never
// invalidates the aggregate that already committed.
type Attacher struct {
	media media.Client
	log   *zap.Logger
}

func NewAttacher(m media.Client, log *zap.Logger) *Attacher {
	return &Attacher{media: m, log: log}
}

// AttachReward inserts the 0-or-1 reward row, applying the
// monetary/non-monetary normalization. The caller logs and swallows
// any error; creation has already succeeded by design.
func (a *Attacher) AttachReward(db *gorm.DB, electionID uint64, in *RewardInput) error {
	if in == nil {
		return nil
	}

	kind := in.Kind
	if kind == "" {
		kind = types.RewardNonMonetary
	}

	winners := in.WinnerCount
	if winners <= 0 {
		winners = 1
	}

	row := types.RewardConfig{
		ElectionID:  electionID,
		Enabled:     boolOr(in.Enabled, true),
		Kind:        kind,
		Amount:      in.Amount,
		WinnerCount: winners,
		Active:      boolOr(in.Active, true),
	}

	// Monetary rewards never carry a description; non-monetary ones are
	// never left without one.
	if kind == types.RewardNonMonetary {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			desc = rewardPlaceholder()
		}
		row.Description = &desc
	}

	return db.Create(&row).Error
}

func rewardPlaceholder() string {
	if v := data.GetSetting("reward_placeholder_description"); v != "" {
		return v
	}
	return defaultRewardDescription
}

// AttachMedia uploads every supplied asset and points the owning row at
// the stored URL. Each asset is guarded independently: one failed
// upload is logged and skipped, the rest still attach.
func (a *Attacher) AttachMedia(ctx context.Context, db *gorm.DB, e *types.Election, files *MediaBundle) {
	if a.media == nil || files.Empty() {
		return
	}

	if files.TopicImage != nil {
		a.attachElectionImage(ctx, db, e, *files.TopicImage, types.SlotTopic, "topic_image_url")
	}
	if files.Logo != nil {
		a.attachElectionImage(ctx, db, e, *files.Logo, types.SlotLogo, "logo_url")
	}

	for _, up := range files.QuestionImages {
		q := matchQuestion(e.Questions, up.Filename)
		if q == nil {
			a.log.Warn("no question matches uploaded file",
				zap.Uint64("election", e.ID), zap.String("filename", up.Filename))
			continue
		}
		asset, err := a.upload(ctx, e.ID, types.SlotQuestion, up)
		if err != nil {
			a.logUploadFailure(e.ID, types.SlotQuestion, up.Filename, err)
			continue
		}
		if err := db.Model(&types.Question{}).Where("id = ?", q.ID).
			Update("image_url", asset.URL).Error; err != nil {
			a.logUploadFailure(e.ID, types.SlotQuestion, up.Filename, err)
			continue
		}
		a.audit(db, e.ID, types.SlotQuestion, asset, up.Filename, &q.ID, nil)
	}

	for _, up := range files.AnswerImages {
		qID, ans := matchAnswer(e.Questions, up.Filename)
		if ans == nil {
			a.log.Warn("no answer matches uploaded file",
				zap.Uint64("election", e.ID), zap.String("filename", up.Filename))
			continue
		}
		asset, err := a.upload(ctx, e.ID, types.SlotAnswer, up)
		if err != nil {
			a.logUploadFailure(e.ID, types.SlotAnswer, up.Filename, err)
			continue
		}
		if err := db.Model(&types.Answer{}).Where("id = ?", ans.ID).
			Update("image_url", asset.URL).Error; err != nil {
			a.logUploadFailure(e.ID, types.SlotAnswer, up.Filename, err)
			continue
		}
		a.audit(db, e.ID, types.SlotAnswer, asset, up.Filename, &qID, &ans.ID)
	}
}

func (a *Attacher) attachElectionImage(ctx context.Context, db *gorm.DB, e *types.Election, up Upload, slot, column string) {
	asset, err := a.upload(ctx, e.ID, slot, up)
	if err != nil {
		a.logUploadFailure(e.ID, slot, up.Filename, err)
		return
	}
	if err := db.Model(&types.Election{}).Where("id = ?", e.ID).
		Update(column, asset.URL).Error; err != nil {
		a.logUploadFailure(e.ID, slot, up.Filename, err)
		return
	}
	a.audit(db, e.ID, slot, asset, up.Filename, nil, nil)
}

func (a *Attacher) upload(ctx context.Context, electionID uint64, slot string, up Upload) (*media.StoredAsset, error) {
	dest := fmt.Sprintf("elections/%d/%s/%s%s",
		electionID, slot, uuid.NewString(), strings.ToLower(filepath.Ext(up.Filename)))
	return a.media.Upload(ctx, up.Content, dest)
}

func (a *Attacher) audit(db *gorm.DB, electionID uint64, slot string, asset *media.StoredAsset, filename string, qID, aID *uint64) {
	rec := types.MediaAttachment{
		ElectionID: electionID,
		Slot:       slot,
		StorageID:  asset.StorageID,
		URL:        asset.URL,
		Filename:   filename,
		QuestionID: qID,
		AnswerID:   aID,
	}
	if err := db.Create(&rec).Error; err != nil {
		a.log.Warn("media audit record failed",
			zap.Uint64("election", electionID), zap.String("slot", slot), zap.Error(err))
	}
}

func (a *Attacher) logUploadFailure(electionID uint64, slot, filename string, err error) {
	a.log.Warn("media attach failed",
		zap.Uint64("election", electionID),
		zap.String("slot", slot),
		zap.String("filename", filename),
		zap.Error(err))
}

func matchQuestion(questions []types.Question, filename string) *types.Question {
	for i := range questions {
		if questions[i].ExternalID != "" && strings.Contains(filename, questions[i].ExternalID) {
			return &questions[i]
		}
	}
	return nil
}

func matchAnswer(questions []types.Question, filename string) (uint64, *types.Answer) {
	for i := range questions {
		for j := range questions[i].Answers {
			ans := &questions[i].Answers[j]
			if ans.ExternalID != "" && strings.Contains(filename, ans.ExternalID) {
				return questions[i].ID, ans
			}
		}
	}
	return 0, nil
}
