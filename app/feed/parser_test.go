package feed

import (
	"testing"
	"time"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Anna Cooks</title>
    <link>https://example.com</link>
    <description>Weeknight cooking</description>
    <language>en-us</language>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Anna Cooks</title>
      <link>https://example.com</link>
    </image>
    <item>
      <title>  Fresh pasta  </title>
      <link>https://example.com/videos/pasta</link>
      <description>Flour, eggs and patience</description>
      <guid>pasta-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Cooking</category>
      <category>Pasta</category>
      <media:thumbnail url="https://example.com/thumbs/pasta.jpg" />
    </item>
    <item>
      <title>Soup basics</title>
      <link>https://example.com/videos/soup</link>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Anna Cooks" {
		t.Errorf("Expected title 'Anna Cooks', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}
	if metadata.ImageURL != "https://example.com/icon.png" {
		t.Errorf("Expected image URL 'https://example.com/icon.png', got: %s", metadata.ImageURL)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	pasta := entries[0]
	if pasta.Title != "Fresh pasta" {
		t.Errorf("Expected trimmed title 'Fresh pasta', got: %q", pasta.Title)
	}
	if pasta.GUID != "pasta-1" {
		t.Errorf("Expected GUID 'pasta-1', got: %s", pasta.GUID)
	}
	if pasta.VideoID != VideoID("pasta-1") {
		t.Errorf("Expected video id derived from GUID, got: %s", pasta.VideoID)
	}
	if len(pasta.Tags) != 2 || pasta.Tags[0] != "Cooking" {
		t.Errorf("Expected categories as tags, got: %v", pasta.Tags)
	}
	if pasta.ThumbnailURL != "https://example.com/thumbs/pasta.jpg" {
		t.Errorf("Expected media thumbnail, got: %s", pasta.ThumbnailURL)
	}
	if want := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC); !pasta.PublishedAt.Equal(want) {
		t.Errorf("Expected published %v, got: %v", want, pasta.PublishedAt)
	}

	soup := entries[1]
	if soup.GUID != "https://example.com/videos/soup" {
		t.Errorf("Expected GUID to fall back to link, got: %s", soup.GUID)
	}
}

func TestParseYouTubeAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>Nomad Tom</title>
  <link rel="alternate" href="https://www.youtube.com/channel/UC123"/>
  <entry>
    <id>yt:video:abc123</id>
    <yt:videoId>abc123</yt:videoId>
    <title>Lisbon in a day</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abc123"/>
    <published>2024-05-01T10:00:00+00:00</published>
    <updated>2024-05-02T10:00:00+00:00</updated>
    <media:group>
      <media:title>Lisbon in a day</media:title>
      <media:thumbnail url="https://i.ytimg.com/vi/abc123/hqdefault.jpg" width="480" height="360"/>
      <media:description>Trams, tiles and pastel de nata</media:description>
      <media:community>
        <media:starRating count="321" average="5.00" min="1" max="5"/>
        <media:statistics views="12345"/>
      </media:community>
    </media:group>
  </entry>
</feed>`

	parser := NewParser()
	_, entries, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.GUID != "yt:video:abc123" {
		t.Errorf("Expected atom id as GUID, got: %s", entry.GUID)
	}
	if entry.Link != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("Unexpected link: %s", entry.Link)
	}
	if entry.Description != "Trams, tiles and pastel de nata" {
		t.Errorf("Expected media description fallback, got: %q", entry.Description)
	}
	if entry.ThumbnailURL != "https://i.ytimg.com/vi/abc123/hqdefault.jpg" {
		t.Errorf("Expected group thumbnail, got: %s", entry.ThumbnailURL)
	}
	if entry.Views != 12345 {
		t.Errorf("Expected 12345 views, got: %d", entry.Views)
	}
	if entry.Likes != 321 {
		t.Errorf("Expected 321 likes, got: %d", entry.Likes)
	}
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !entry.PublishedAt.Equal(want) {
		t.Errorf("Expected published %v, got: %v", want, entry.PublishedAt)
	}
}

func TestVideoIDStable(t *testing.T) {
	if VideoID("a") != VideoID("a") {
		t.Error("Expected the same GUID to map to the same video id")
	}
	if VideoID("a") == VideoID("b") {
		t.Error("Expected distinct GUIDs to map to distinct video ids")
	}
}

func TestParseInvalidData(t *testing.T) {
	parser := NewParser()
	if _, _, err := parser.Run([]byte("not a feed")); err == nil {
		t.Error("Expected error for invalid feed data")
	}
}
