package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks entries rejected by the channel's filters. Excludes win over
// includes; an include list requires at least one match.
func (f *Filterer) Run(entries []Entry, config *Config) []Entry {
	if len(config.Filters) == 0 {
		return entries
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.IsFiltered, entry.FilterReason = f.applyFilters(entry, config.Filters)
		out = append(out, entry)
	}
	return out
}

func (f *Filterer) applyFilters(entry Entry, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := fieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if matches(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) == 0 {
			continue
		}
		matched := false
		for _, include := range filter.Includes {
			if matches(value, include) {
				matched = true
				break
			}
		}
		if !matched {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

func matches(value, pattern string) bool {
	folder := cases.Fold()
	return strings.Contains(folder.String(value), folder.String(pattern))
}

func fieldValue(entry Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "description":
		return entry.Description
	case "tags":
		return strings.Join(entry.Tags, " ")
	case "link":
		return entry.Link
	default:
		return ""
	}
}
