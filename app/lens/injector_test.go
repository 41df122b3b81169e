package lens

import (
	"fmt"
	"testing"
)

func organicItems(n int) []FeedItem {
	items := make([]FeedItem, n)
	for i := range items {
		items[i] = FeedItem{Video: Video{ID: fmt.Sprintf("o%02d", i)}, Origin: OriginDiscovery}
	}
	return items
}

func sponsoredItems(idList ...string) []FeedItem {
	items := make([]FeedItem, len(idList))
	for i, id := range idList {
		items[i] = FeedItem{Video: Video{ID: id}, IsSponsored: true, SponsorName: "Acme"}
	}
	return items
}

func TestInjectCadence(t *testing.T) {
	in := NewInjector(DefaultInjectorConfig())

	out := in.Inject(organicItems(12), sponsoredItems("s1", "s2"))

	if len(out) != 14 {
		t.Fatalf("expected 14 items, got %d", len(out))
	}
	for pos, want := range map[int]string{5: "s1", 10: "s2"} {
		if out[pos].Video.ID != want || !out[pos].IsSponsored {
			t.Errorf("position %d = %s (sponsored=%v), want sponsored %s", pos, out[pos].Video.ID, out[pos].IsSponsored, want)
		}
	}
	sponsored := 0
	for _, it := range out {
		if it.IsSponsored {
			sponsored++
		}
	}
	if sponsored != 2 {
		t.Errorf("expected 2 sponsored rows, got %d", sponsored)
	}
}

func TestInjectShortPageAppends(t *testing.T) {
	in := NewInjector(DefaultInjectorConfig())

	out := in.Inject(organicItems(3), sponsoredItems("s1", "s2"))

	got := ids(out)
	want := []string{"o00", "o01", "o02", "s1", "s2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestInjectEmptyOrganic(t *testing.T) {
	in := NewInjector(DefaultInjectorConfig())

	out := in.Inject(nil, sponsoredItems("s1"))
	if len(out) != 1 || out[0].Video.ID != "s1" {
		t.Errorf("expected the sponsored row alone, got %v", ids(out))
	}
}

func TestSelectRotatesAcrossPages(t *testing.T) {
	in := NewInjector(InjectorConfig{Cadence: 5, PerPage: 2})
	queue := sponsoredItems("s1", "s2", "s3")

	tests := []struct {
		page int
		want []string
	}{
		{0, []string{"s1", "s2"}},
		{1, []string{"s3", "s1"}},
		{2, []string{"s2", "s3"}},
	}

	for _, tt := range tests {
		got := ids(in.Select(queue, nil, tt.page))
		if len(got) != len(tt.want) || got[0] != tt.want[0] || got[1] != tt.want[1] {
			t.Errorf("page %d: got %v, want %v", tt.page, got, tt.want)
		}
	}
}

func TestSelectSkipsOrganicDuplicates(t *testing.T) {
	in := NewInjector(DefaultInjectorConfig())
	organic := organicItems(6)
	queue := sponsoredItems("o02", "s1", "s1", "s2")

	got := ids(in.Select(queue, organic, 0))

	if len(got) != 2 || got[0] != "s1" || got[1] != "s2" {
		t.Errorf("expected [s1 s2], got %v", got)
	}
}

func TestSelectDisabled(t *testing.T) {
	in := NewInjector(InjectorConfig{Cadence: 5, PerPage: 0})
	if got := in.Select(sponsoredItems("s1"), nil, 0); len(got) != 0 {
		t.Errorf("expected no sponsored rows when disabled, got %v", ids(got))
	}
}
