// Package authz implements the authorization evaluator: group permission
// checks and per-field edit locks.
package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/controller/fieldlock"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/grouppermission"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

// Permission constants define the protected actions in the system.
const (
	// PermReportCreate allows recording new reports.
	PermReportCreate = "report.create"
	// PermReportEdit allows editing report fields.
	PermReportEdit = "report.edit"
	// PermReportRespond allows responding to a report.
	PermReportRespond = "report.respond"
	// PermReportFinalize allows closing a report.
	PermReportFinalize = "report.finalize"
	// PermReportDelete allows soft deleting a report.
	PermReportDelete = "report.delete"
	// PermReportShare allows sharing a report with other users.
	PermReportShare = "report.share"

	// PermAdminUsers allows managing user accounts.
	PermAdminUsers = "admin.users"
	// PermAdminGroups allows managing groups.
	PermAdminGroups = "admin.groups"
	// PermAdminPermissions allows managing group permission flags.
	PermAdminPermissions = "admin.permissions"
	// PermAdminFieldLocks allows managing field locks.
	PermAdminFieldLocks = "admin.fieldlocks"
)

// lockEntry caches one field lock lookup.
type lockEntry struct {
	locked   bool
	required bool
}

// Service evaluates permissions and field locks for users.
//
// Two deliberate asymmetries are preserved from the legacy system:
// permissions are default-deny (no row means no), field locks are
// default-allow (no row means the field is editable). Admin accounts bypass
// both checks entirely.
type Service struct {
	db        *gorm.DB
	permCache *expirable.LRU[string, bool]
	lockCache *expirable.LRU[string, lockEntry]
}

// NewService creates a new authorization service. Lookups are cached in a
// bounded LRU with the given ttl; the caches are injected per instance so no
// process-wide state outlives the service.
func NewService(db *gorm.DB, cacheSize int, cacheTTL time.Duration) *Service {
	return &Service{
		db:        db,
		permCache: expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL),
		lockCache: expirable.NewLRU[string, lockEntry](cacheSize, nil, cacheTTL),
	}
}

// Invalidate drops all cached lookups. Called after admin writes to the
// permission or field lock stores.
func (s *Service) Invalidate() {
	s.permCache.Purge()
	s.lockCache.Purge()
}

// Can reports whether the user may perform the named action.
// Pure read, no side effects.
func (s *Service) Can(user *models.User, permission string) (bool, error) {
	if user == nil {
		return false, nil
	}

	// hard bypass for administrators
	if user.IsAdmin() {
		return true, nil
	}

	// no group, no group-granted rights
	if user.GroupID == nil {
		return false, nil
	}

	key := fmt.Sprintf("%d:%s", *user.GroupID, permission)
	if allowed, ok := s.permCache.Get(key); ok {
		return allowed, nil
	}

	flag, err := grouppermission.Get(s.db, *user.GroupID, permission)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// absent row means denied
		s.permCache.Add(key, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	s.permCache.Add(key, flag.Allowed)

	return flag.Allowed, nil
}

// CanEditField reports whether the user may edit the named report field in
// the given lifecycle context.
func (s *Service) CanEditField(user *models.User, field string, context models.LockContext) (bool, error) {
	entry, err := s.lockFor(user, field, context)
	if err != nil {
		return false, err
	}

	return !entry.locked, nil
}

// FieldRequired reports whether the named field is mandatory for the user's
// group in the given context. Unconfigured fields are not required.
func (s *Service) FieldRequired(user *models.User, field string, context models.LockContext) (bool, error) {
	entry, err := s.lockFor(user, field, context)
	if err != nil {
		return false, err
	}

	return entry.required, nil
}

// lockFor resolves the effective field lock flags for the user.
func (s *Service) lockFor(user *models.User, field string, context models.LockContext) (lockEntry, error) {
	open := lockEntry{locked: false, required: false}

	if user == nil {
		return open, nil
	}

	if user.IsAdmin() {
		return open, nil
	}

	// ungrouped users are subject to no field locks
	if user.GroupID == nil {
		return open, nil
	}

	key := fmt.Sprintf("%d:%s:%s", *user.GroupID, field, context)
	if entry, ok := s.lockCache.Get(key); ok {
		return entry, nil
	}

	lock, err := fieldlock.Get(s.db, *user.GroupID, field, context)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// absent row means unlocked and not required
		s.lockCache.Add(key, open)
		return open, nil
	}
	if err != nil {
		return open, fmt.Errorf("failed to check field lock: %w", err)
	}

	entry := lockEntry{locked: lock.IsLocked, required: lock.IsRequired}
	s.lockCache.Add(key, entry)

	return entry, nil
}
