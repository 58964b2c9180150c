package election

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/data"
	"github.com/openballot/election-api/src/api/media"
	"github.com/openballot/election-api/src/api/types"
)

// Service owns the creation pipeline: validate, write the mandatory
// aggregate in one transaction, attach optional features best-effort,
// then re-read through the same path a later get would use.
type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	log      *zap.Logger
	writer   *Writer
	attacher *Attacher
	reader   *Reader
	media    media.Client
}

func NewService(db *gorm.DB, rdb *redis.Client, m media.Client, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		rdb:      rdb,
		log:      log,
		writer:   NewWriter(),
		attacher: NewAttacher(m, log),
		reader:   NewReader(),
		media:    m,
	}
}

// Create runs the full pipeline. Only validation and the mandatory
// write can fail it; reward and media problems are logged and the
// election is still reported as created.
func (s *Service) Create(ctx context.Context, creator string, in *CreateElectionInput, files *MediaBundle) (*ElectionView, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *types.Election
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.writer.CreateAggregate(tx, creator, in)
		if err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Optional-feature phase. The aggregate is durable; nothing past
	// this point may fail the request.
	if err := s.attacher.AttachReward(s.db.WithContext(ctx), created.ID, in.Reward); err != nil {
		s.log.Warn("reward configuration failed",
			zap.Uint64("election", created.ID), zap.Error(err))
	}
	s.attacher.AttachMedia(ctx, s.db.WithContext(ctx), created, files)

	s.publishEvent(ctx, "created", created.ID, creator)

	return s.Get(ctx, created.ID)
}

// Get returns the nested aggregate or ErrNotFound.
func (s *Service) Get(ctx context.Context, id uint64) (*ElectionView, error) {
	return s.reader.Get(s.db.WithContext(ctx), id)
}

// List returns summary rows matching the filter plus the total count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]ElectionSummary, int64, error) {
	return s.reader.List(s.db.WithContext(ctx), f)
}

// Update applies the allow-listed fields and returns the re-read
// aggregate.
func (s *Service) Update(ctx context.Context, id uint64, in *UpdateElectionInput) (*ElectionView, error) {
	db := s.db.WithContext(ctx)

	var existing types.Election
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updates := buildUpdates(in)
	if len(updates) > 0 {
		if err := db.Model(&types.Election{}).Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return nil, classifyConstraint(err)
		}
	}

	s.publishEvent(ctx, "updated", id, existing.CreatorID)
	return s.Get(ctx, id)
}

// buildUpdates maps each allow-listed input field to its column. This
// replaces key-iteration over the raw request body: a field absent here
// cannot be written, whatever the caller sends.
func buildUpdates(in *UpdateElectionInput) map[string]interface{} {
	updates := map[string]interface{}{}

	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.StartDate != nil {
		date, tm := normalizeSchedule(in.StartDate, DefaultStartTime)
		updates["start_date"] = date
		updates["start_time"] = tm
	}
	if in.EndDate != nil {
		date, tm := normalizeSchedule(in.EndDate, DefaultEndTime)
		updates["end_date"] = date
		updates["end_time"] = tm
	}
	if in.Timezone != nil {
		updates["timezone"] = *in.Timezone
	}
	if in.VotingMethod != nil {
		updates["voting_method"] = *in.VotingMethod
	}
	if in.PermissionMode != nil {
		updates["permission_mode"] = *in.PermissionMode
	}
	if in.RequireLogin != nil {
		updates["require_login"] = *in.RequireLogin
	}
	if in.RequireVerifiedEmail != nil {
		updates["require_verified_email"] = *in.RequireVerifiedEmail
	}
	if in.Require2FA != nil {
		updates["require_2fa"] = *in.Require2FA
	}
	if in.Countries != nil {
		updates["countries"] = jsonColumn([]string(*in.Countries), "[]")
	}
	if in.BaseFee != nil {
		updates["base_fee"] = *in.BaseFee
	}
	if in.RegionalFees != nil {
		updates["regional_fees"] = jsonColumn(map[string]float64(*in.RegionalFees), "{}")
	}
	if in.IsPublic != nil {
		updates["is_public"] = *in.IsPublic
	}
	if in.AllowEdit != nil {
		updates["allow_edit"] = *in.AllowEdit
	}
	if in.CustomCSS != nil {
		updates["custom_css"] = *in.CustomCSS
	}
	if in.Colors != nil {
		updates["colors"] = jsonColumn(map[string]string(*in.Colors), "{}")
	}
	if in.Language != nil {
		updates["language"] = *in.Language
	}
	if in.IsDraft != nil {
		updates["is_draft"] = *in.IsDraft
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}

	return updates
}

// Delete removes the aggregate in one transaction, then best-effort
// deletes every stored asset recorded for it.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	db := s.db.WithContext(ctx)

	var existing types.Election
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	// The aggregate still gets deleted if this lookup fails, but the
	// stored assets it would have named leak, so say so.
	var attachments []types.MediaAttachment
	if err := db.Where("election_id = ?", id).Find(&attachments).Error; err != nil {
		s.log.Warn("attachment lookup failed, stored assets will not be cleaned up",
			zap.Uint64("election", id), zap.Error(err))
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id IN (?)",
			tx.Model(&types.Question{}).Select("id").Where("election_id = ?", id),
		).Delete(&types.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("election_id = ?", id).Delete(&types.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("election_id = ?", id).Delete(&types.RewardConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("election_id = ?", id).Delete(&types.MediaAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&types.Election{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	if s.media != nil {
		for _, att := range attachments {
			if err := s.media.Delete(ctx, att.StorageID); err != nil {
				s.log.Warn("stored asset cleanup failed",
					zap.Uint64("election", id),
					zap.String("storage_id", att.StorageID),
					zap.Error(err))
			}
		}
	}

	s.publishEvent(ctx, "deleted", id, existing.CreatorID)
	return nil
}

func (s *Service) publishEvent(ctx context.Context, action string, id uint64, creator string) {
	if s.rdb == nil {
		return
	}
	if err := data.PublishElectionEvent(ctx, s.rdb, map[string]interface{}{
		"action":   action,
		"election": id,
		"creator":  creator,
	}); err != nil {
		s.log.Debug("event publish failed", zap.String("action", action), zap.Error(err))
	}
}
