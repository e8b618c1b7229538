package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrTokenRevoked indicates the token's jti is already on the denylist.
	ErrTokenRevoked = errors.New("auth: token revoked")

	errMissingDenylistDatabase = errors.New("auth: denylist database required")
)

// RevokedToken records a logged-out token until its natural expiry.
type RevokedToken struct {
	JTI       string    `gorm:"column:jti;primaryKey;size:64;not null"`
	Subject   string    `gorm:"column:subject;size:190;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	RevokedAt time.Time `gorm:"column:revoked_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// DenylistConfig describes the dependencies for the token denylist.
type DenylistConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Denylist persists revoked token identifiers so logout survives
// process restarts.
type Denylist struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewDenylist constructs the denylist over the shared database handle.
func NewDenylist(cfg DenylistConfig) (*Denylist, error) {
	if cfg.Database == nil {
		return nil, errMissingDenylistDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Denylist{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Revoke adds the token's jti to the denylist. Revoking a token that
// is already revoked fails with ErrTokenRevoked.
func (d *Denylist) Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	revoked, err := d.IsRevoked(ctx, jti)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}

	record := RevokedToken{
		JTI:       jti,
		Subject:   subject,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: d.clock().UTC(),
	}
	if err := d.db.WithContext(ctx).Create(&record).Error; err != nil {
		d.logger.Error("denylist insert failed", zap.Error(err), zap.String("jti", jti))
		return err
	}
	return nil
}

// IsRevoked reports whether the jti is on the denylist.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var record RevokedToken
	err := d.db.WithContext(ctx).Where("jti = ?", jti).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		d.logger.Error("denylist lookup failed", zap.Error(err), zap.String("jti", jti))
		return false, err
	}
	return true, nil
}

// PurgeExpired drops entries whose tokens have expired on their own.
// Returns the number of rows removed.
func (d *Denylist) PurgeExpired(ctx context.Context) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("expires_at < ?", d.clock().UTC()).
		Delete(&RevokedToken{})
	if result.Error != nil {
		d.logger.Error("denylist purge failed", zap.Error(result.Error))
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
