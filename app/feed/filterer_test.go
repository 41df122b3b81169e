package feed

import (
	"strings"
	"testing"
)

func TestFiltererNoFilters(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Fresh pasta"},
		{Title: "Soup basics"},
	}

	result := filterer.Run(entries, &Config{})
	if len(result) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result))
	}
	for i, entry := range result {
		if entry.IsFiltered || entry.FilterReason != "" {
			t.Errorf("Entry %d should not be filtered when no filters are configured", i)
		}
	}
}

func TestFiltererTitleIncludes(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Weeknight PASTA"},
		{Title: "Quick Soup"},
		{Title: "Studio tour"},
	}

	config := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"pasta", "soup"}},
		},
	}

	result := filterer.Run(entries, config)
	if len(result) != 3 {
		t.Fatalf("Expected entries to be marked, not dropped; got %d", len(result))
	}
	if result[0].IsFiltered || result[1].IsFiltered {
		t.Error("Case-insensitive include matches should pass")
	}
	if !result[2].IsFiltered {
		t.Error("Entry without any include match should be filtered")
	}
	if !strings.Contains(result[2].FilterReason, "does not contain") {
		t.Errorf("Unexpected filter reason: %s", result[2].FilterReason)
	}
}

func TestFiltererExcludesWin(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Pasta #shorts", Tags: []string{"cooking"}},
		{Title: "Pasta", Tags: []string{"Sponsored", "cooking"}},
		{Title: "Pasta", Tags: []string{"cooking"}},
	}

	config := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"pasta"}, Excludes: []string{"#SHORTS"}},
			{Field: "tags", Excludes: []string{"sponsored"}},
		},
	}

	result := filterer.Run(entries, config)
	if !result[0].IsFiltered || !strings.Contains(result[0].FilterReason, "title") {
		t.Errorf("Expected title exclude, got %+v", result[0])
	}
	if !result[1].IsFiltered || !strings.Contains(result[1].FilterReason, "tags") {
		t.Errorf("Expected tags exclude, got %+v", result[1])
	}
	if result[2].IsFiltered {
		t.Errorf("Expected entry to pass, got reason %q", result[2].FilterReason)
	}
}

func TestFiltererDescriptionAndLink(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Description: "Live stream replay", Link: "https://example.com/live/1"},
		{Description: "Recipe", Link: "https://example.com/videos/2"},
	}

	config := &Config{
		Filters: []ConfigFilter{
			{Field: "link", Excludes: []string{"/live/"}},
			{Field: "description", Includes: []string{"recipe"}},
		},
	}

	result := filterer.Run(entries, config)
	if !result[0].IsFiltered {
		t.Error("Expected live link to be excluded")
	}
	if result[1].IsFiltered {
		t.Errorf("Expected recipe to pass, got %q", result[1].FilterReason)
	}
}
