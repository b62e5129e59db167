// Package tenant models reporting users, their POS branches, and the
// routing of requests to per-branch databases.
package tenant

import (
	"time"

	"github.com/posrapor/posrapor/internal/shared"
)

// User is a tenant identity from the catalog database. A user owns an
// ordered list of branches and a persisted branch selection.
type User struct {
	ID              int64
	Email           string
	Admin           bool
	SubscriptionEnd time.Time
	AllowedReports  AllowedReports
	Branches        []Branch
	SelectedBranch  int
}

// Branch is one POS deployment: a display name plus the coordinates of its
// own Postgres instance. The password is an opaque credential from the
// catalog; it is decoded through DecryptPassword just before dialing.
type Branch struct {
	ID          int64
	Name        string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	KasaNo      int
	Kasalar     []int
	ClosingHour int
}

// BranchAt returns the branch at index, or the user's stored selection when
// index is negative. An unresolvable index is an explicit error; callers
// must never proceed without a branch.
func (u *User) BranchAt(index int) (*Branch, error) {
	if index < 0 {
		index = u.SelectedBranch
	}
	if index < 0 || index >= len(u.Branches) {
		return nil, shared.ErrInvalidBranchSelection
	}
	return &u.Branches[index], nil
}

// SubscriptionActive reports whether the user may query reports at all.
func (u *User) SubscriptionActive(now time.Time) bool {
	return u.SubscriptionEnd.IsZero() || now.Before(u.SubscriptionEnd)
}
