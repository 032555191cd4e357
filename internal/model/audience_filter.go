// internal/model/audience_filter.go
package model

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// StringSet is a sorted, de-duplicated list. Two sets with the same members
// compare and serialize identically.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	if len(values) == 0 {
		return StringSet{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make(StringSet, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) Contains(v string) bool {
	i := sort.SearchStrings(s, v)
	return i < len(s) && s[i] == v
}

// ContainsAll reports whether every member of other is in s.
func (s StringSet) ContainsAll(other StringSet) bool {
	for _, v := range other {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

func (s StringSet) intersects(values []string) bool {
	for _, v := range values {
		if s.Contains(v) {
			return true
		}
	}
	return false
}

func (s StringSet) matchesTag(c *Contact) bool {
	return s.intersects(c.TagIDs) || s.intersects(c.TagNames)
}

// AudienceFilter is the canonical targeting criteria for one audience query.
type AudienceFilter struct {
	IncludeTags         StringSet `json:"include_tags"`
	ExcludeTags         StringSet `json:"exclude_tags"`
	ExcludeCountries    StringSet `json:"exclude_countries"`
	Search              *string   `json:"search,omitempty"`
	Page                int       `json:"page" validate:"min=1,max=10000"`
	Limit               int       `json:"limit" validate:"min=1,max=100"`
	IncludeCustomFields bool      `json:"include_custom_fields"`

	// Eligibility flags set by campaign target rules. Contact listing leaves them off.
	OnlyActive     bool `json:"only_active,omitempty"`
	OnlySubscribed bool `json:"only_subscribed,omitempty"`
	RequireEmail   bool `json:"require_email,omitempty"`
	ExcludeBounced bool `json:"exclude_bounced,omitempty"`
}

// Offset is the number of rows skipped before the requested page.
func (f AudienceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Unsatisfiable reports whether every included tag is also excluded, in which
// case no contact can match.
func (f AudienceFilter) Unsatisfiable() bool {
	return len(f.IncludeTags) > 0 && f.ExcludeTags.ContainsAll(f.IncludeTags)
}

// Matches evaluates the filter against one contact of orgID. A tag criterion
// entry matches either a tag id or a tag name; TagIDs and TagNames on the
// contact must already be scoped to orgID. ExcludeBounced needs recipient
// history and is only evaluated by the store.
func (f AudienceFilter) Matches(orgID uuid.UUID, c *Contact) bool {
	if c == nil || c.OrganizationID != orgID || c.DeletedAt != nil {
		return false
	}
	if len(f.IncludeTags) > 0 && !f.IncludeTags.matchesTag(c) {
		return false
	}
	if len(f.ExcludeTags) > 0 && f.ExcludeTags.matchesTag(c) {
		return false
	}
	if c.Country != nil && f.ExcludeCountries.Contains(*c.Country) {
		return false
	}
	if f.OnlyActive && !c.IsActive {
		return false
	}
	if f.OnlySubscribed && !c.IsSubscribed {
		return false
	}
	if f.RequireEmail && deref(c.Email) == "" {
		return false
	}
	if f.Search != nil {
		needle := strings.ToLower(*f.Search)
		if !containsFold(c.Email, needle) && !containsFold(c.FirstName, needle) && !containsFold(c.LastName, needle) {
			return false
		}
	}
	return true
}

func containsFold(field *string, lowerNeedle string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), lowerNeedle)
}
