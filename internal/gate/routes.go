package gate

import (
	"strings"

	"github.com/carecollective/care-api/internal/domain/entity"
)

// routeRequirements maps protected path prefixes to their requirement sets.
// One table instead of per-route branching in handlers; longest prefix wins.
var routeRequirements = []struct {
	prefix string
	req    Requirements
}{
	// Admin moderation panel: approval and admin rights, both enforced.
	{"/admin", Requirements{MinStatus: entity.StatusApproved, RequireAdmin: true}},

	// Community features: approved members with a confirmed email.
	{"/requests", Requirements{MinStatus: entity.StatusApproved, RequireEmailConfirmed: true}},
	{"/messages", Requirements{MinStatus: entity.StatusApproved, RequireEmailConfirmed: true}},

	// Session-only pages: pending members may see their own state here.
	{"/dashboard", Requirements{}},
	{"/waitlist", Requirements{}},
	{"/verify-email", Requirements{}},
	{"/profile", Requirements{}},
}

// RequirementsFor returns the requirement set for a protected path and
// whether the path is protected at all.
func RequirementsFor(path string) (Requirements, bool) {
	best := -1
	var found Requirements
	for _, r := range routeRequirements {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			if len(r.prefix) > best {
				best = len(r.prefix)
				found = r.req
			}
		}
	}
	return found, best >= 0
}
