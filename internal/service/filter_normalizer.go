// internal/service/filter_normalizer.go
package service

import (
	"net/url"
	"strconv"
	"strings"

	appErrors "github.com/unclebandit/nanis-backend/internal/errors"
	"github.com/unclebandit/nanis-backend/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
	MaxPage      = 10000
)

// NormalizeAudienceFilter turns contact listing query parameters into the
// canonical AudienceFilter. Set parameters are accepted either as repeated keys
// (include_tags=a&include_tags=b or include_tags[]=a) or as one comma-joined
// value (include_tags=a,b). When repeated entries are present they win and the
// comma form is not consulted.
func NormalizeAudienceFilter(q url.Values) (model.AudienceFilter, error) {
	f := model.AudienceFilter{
		IncludeTags:      readSet(q, "include_tags", false),
		ExcludeTags:      readSet(q, "exclude_tags", false),
		ExcludeCountries: readSet(q, "exclude_countries", true),
		Page:             DefaultPage,
		Limit:            DefaultLimit,
	}

	if s := strings.TrimSpace(q.Get("search")); s != "" {
		f.Search = &s
	}

	page, err := readPositiveInt(q, "page", DefaultPage)
	if err != nil {
		return model.AudienceFilter{}, err
	}
	limit, err := readPositiveInt(q, "limit", DefaultLimit)
	if err != nil {
		return model.AudienceFilter{}, err
	}
	f.Page = min(page, MaxPage)
	f.Limit = min(limit, MaxLimit)

	if v, err := strconv.ParseBool(strings.TrimSpace(q.Get("include_custom_fields"))); err == nil {
		f.IncludeCustomFields = v
	}

	return f, nil
}

func readSet(q url.Values, key string, lower bool) model.StringSet {
	plain := q[key]

	repeated := append([]string{}, q[key+"[]"]...)
	if len(plain) > 1 {
		repeated = append(repeated, plain...)
	}

	var raw []string
	if entries := cleanEntries(repeated, lower); len(entries) > 0 {
		raw = entries
	} else if len(plain) == 1 {
		raw = cleanEntries(strings.Split(plain[0], ","), lower)
	}
	return model.NewStringSet(raw...)
}

func cleanEntries(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		out = append(out, v)
	}
	return out
}

// readPositiveInt treats an absent or blank value as the default and rejects
// anything else that is not an integer >= 1.
func readPositiveInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// digits too large for int are still a positive integer
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange && !strings.HasPrefix(raw, "-") {
			return int(^uint(0) >> 1), nil
		}
		return 0, appErrors.NewMalformedFilter(key, raw)
	}
	if n < 1 {
		return 0, appErrors.NewMalformedFilter(key, raw)
	}
	return n, nil
}
