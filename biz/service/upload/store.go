package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/lock"
	"gorm.io/gorm"
)

const defaultWriteTimeout = 15 * time.Second

// Claim identifies the attempt that moved a version to UPLOADING.
type Claim struct {
	Version *model.DocumentVersion
	Token   string
}

// VersionStore performs every upload_state write. Each write holds the
// per-version lock and a row lock for the duration of its transaction.
type VersionStore struct {
	db           *gorm.DB
	locker       lock.Locker
	versionDAO   *db.DocumentVersionDAO
	now          func() time.Time
	writeTimeout time.Duration
}

func NewVersionStore(dbConn *gorm.DB, locker lock.Locker) *VersionStore {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &VersionStore{
		db:           dbConn,
		locker:       locker,
		versionDAO:   db.NewDocumentVersionDAO(),
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
}

func lockKey(versionID uint) string {
	return fmt.Sprintf("version:%d", versionID)
}

// mutate loads the version under both locks and applies the updates fn
// returns. A nil map means nothing to write.
func (s *VersionStore) mutate(ctx context.Context, versionID uint, fn func(v *model.DocumentVersion) (map[string]any, error)) (*model.DocumentVersion, error) {
	var result *model.DocumentVersion
	err := lock.WithLock(ctx, s.locker, lockKey(versionID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			v, err := s.versionDAO.GetForUpdate(ctx, tx, versionID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrVersionNotFound
				}
				return err
			}
			updates, err := fn(v)
			if err != nil {
				return err
			}
			if len(updates) > 0 {
				if err := s.versionDAO.ApplyUpdates(ctx, tx, versionID, updates); err != nil {
					return err
				}
			}
			result = v
			return nil
		})
	})
	return result, err
}

// detached keeps result writes alive after the attempt context expired.
func (s *VersionStore) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

// Claim moves a PENDING or FAILED version to UPLOADING.
func (s *VersionStore) Claim(ctx context.Context, versionID uint) (*Claim, error) {
	token := uuid.NewString()
	v, err := s.mutate(ctx, versionID, func(v *model.DocumentVersion) (map[string]any, error) {
		switch v.UploadState {
		case model.UploadUploading:
			return nil, ErrVersionBusy
		case model.UploadReady:
			return nil, ErrAlreadyReady
		}
		if !v.UploadState.Claimable() {
			return nil, fmt.Errorf("cannot claim version in state %s", v.UploadState)
		}
		now := s.now()
		v.UploadState = model.UploadUploading
		v.ErrorMessage = ""
		v.ClaimToken = token
		v.ClaimedAt = &now
		v.Attempts++
		return map[string]any{
			"upload_state":  model.UploadUploading,
			"error_message": "",
			"claim_token":   token,
			"claimed_at":    now,
			"attempts":      v.Attempts,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &Claim{Version: v, Token: token}, nil
}

func owned(v *model.DocumentVersion, token string) bool {
	return v.UploadState == model.UploadUploading && v.ClaimToken == token
}

// Commit records the physical locator and marks the version READY.
// uploaded_at is written only the first time.
func (s *VersionStore) Commit(ctx context.Context, claim *Claim, locator string) error {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	_, err := s.mutate(ctx, claim.Version.ID, func(v *model.DocumentVersion) (map[string]any, error) {
		if !owned(v, claim.Token) {
			return nil, ErrStaleClaim
		}
		updates := map[string]any{
			"upload_state":  model.UploadReady,
			"storage_key":   locator,
			"error_message": "",
			"claim_token":   "",
		}
		if v.UploadedAt == nil {
			updates["uploaded_at"] = s.now()
		}
		return updates, nil
	})
	return err
}

// Fail marks the version FAILED with the cause, if the claim still owns it.
func (s *VersionStore) Fail(ctx context.Context, claim *Claim, cause error) error {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	_, err := s.mutate(ctx, claim.Version.ID, func(v *model.DocumentVersion) (map[string]any, error) {
		if !owned(v, claim.Token) {
			return nil, ErrStaleClaim
		}
		return map[string]any{
			"upload_state":  model.UploadFailed,
			"error_message": truncateMessage(cause.Error()),
			"claim_token":   "",
		}, nil
	})
	return err
}

// MarkDispatchFailed records that the job for a PENDING version could not
// be handed to a worker. Any other state is left alone, so a FAILED version
// keeps the error of its last attempt.
func (s *VersionStore) MarkDispatchFailed(ctx context.Context, versionID uint, cause error) error {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	_, err := s.mutate(ctx, versionID, func(v *model.DocumentVersion) (map[string]any, error) {
		if v.UploadState != model.UploadPending {
			return nil, nil
		}
		return map[string]any{
			"upload_state":  model.UploadFailed,
			"error_message": truncateMessage(cause.Error()),
		}, nil
	})
	return err
}

// Expire fails an UPLOADING version whose claim started before cutoff and
// is still the claim that was observed.
func (s *VersionStore) Expire(ctx context.Context, versionID uint, token string, cutoff time.Time) (*model.DocumentVersion, bool, error) {
	expired := false
	v, err := s.mutate(ctx, versionID, func(v *model.DocumentVersion) (map[string]any, error) {
		if !owned(v, token) || v.ClaimedAt == nil || !v.ClaimedAt.Before(cutoff) {
			return nil, nil
		}
		expired = true
		return map[string]any{
			"upload_state":  model.UploadFailed,
			"error_message": "upload claim expired",
			"claim_token":   "",
		}, nil
	})
	return v, expired, err
}
