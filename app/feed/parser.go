package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		PublishedAt: feed.PublishedParsed,
	}
	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entry := p.normalizeItem(item)
		if entry.GUID == "" {
			continue
		}
		entries = append(entries, entry)
	}

	return metadata, entries, nil
}

// VideoID derives the catalog id of an entry from its GUID.
func VideoID(guid string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(guid)).String()
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:  cmp.Or(item.GUID, item.Link),
		Title: strings.TrimSpace(item.Title),
		Link:  item.Link,
	}
	entry.VideoID = VideoID(entry.GUID)

	entry.Description = strings.TrimSpace(cmp.Or(
		item.Description,
		mediaValue(item.Extensions, "group", "description"),
		mediaValue(item.Extensions, "description"),
	))

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed.UTC()
	} else {
		entry.PublishedAt = time.Now().UTC()
	}

	entry.ThumbnailURL = p.thumbnail(item)
	entry.Tags = append(entry.Tags, item.Categories...)
	if keywords := mediaValue(item.Extensions, "group", "keywords"); keywords != "" {
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				entry.Tags = append(entry.Tags, kw)
			}
		}
	}

	if stats := findMedia(item.Extensions, "group", "community", "statistics"); stats != nil {
		entry.Views = parseCount(stats.Attrs["views"])
	}
	if rating := findMedia(item.Extensions, "group", "community", "starRating"); rating != nil {
		entry.Likes = parseCount(rating.Attrs["count"])
	}

	return entry
}

func (p *Parser) thumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, path := range [][]string{{"group", "thumbnail"}, {"thumbnail"}} {
		if th := findMedia(item.Extensions, path...); th != nil && th.Attrs["url"] != "" {
			return th.Attrs["url"]
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// findMedia walks a media:* element path such as group > community > statistics.
func findMedia(exts ext.Extensions, path ...string) *ext.Extension {
	if len(path) == 0 {
		return nil
	}
	level, ok := exts["media"][path[0]]
	if !ok || len(level) == 0 {
		return nil
	}
	node := level[0]
	for _, name := range path[1:] {
		children, ok := node.Children[name]
		if !ok || len(children) == 0 {
			return nil
		}
		node = children[0]
	}
	return &node
}

func mediaValue(exts ext.Extensions, path ...string) string {
	if node := findMedia(exts, path...); node != nil {
		return node.Value
	}
	return ""
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
