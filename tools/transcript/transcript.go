package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNoTranscript is returned when none of the requested languages has captions.
var ErrNoTranscript = errors.New("no transcript available for the requested languages")

// ErrInvalidURL is returned when no video id can be extracted from the input.
var ErrInvalidURL = errors.New("could not extract video id from url")

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:embed/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),
}

// ExtractVideoID pulls the 11-character video id out of the common URL shapes
// (watch, short link, embed). Returns ErrInvalidURL when nothing matches.
func ExtractVideoID(raw string) (string, error) {
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(raw); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", ErrInvalidURL
}

// Segment is one caption line with its start offset.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Metadata is the subset of video metadata the oEmbed endpoint exposes.
type Metadata struct {
	Title     string `json:"title"`
	Author    string `json:"author_name"`
	Thumbnail string `json:"thumbnail_url"`
}

type Client struct {
	HTTP      *http.Client
	Languages []string
}

func NewClient(languages []string, timeout time.Duration) *Client {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Languages: languages,
	}
}

// Fetch downloads the caption track for the first requested language that has
// one. The returned language is the one that matched, and the flag reports
// whether the track is auto-generated (asr).
func (c *Client) Fetch(ctx context.Context, videoID string) ([]Segment, string, bool, error) {
	for _, lang := range c.Languages {
		segs, err := c.fetchTrack(ctx, videoID, lang, "")
		if err != nil {
			return nil, "", false, err
		}
		if len(segs) > 0 {
			return segs, lang, false, nil
		}
		segs, err = c.fetchTrack(ctx, videoID, lang, "asr")
		if err != nil {
			return nil, "", false, err
		}
		if len(segs) > 0 {
			return segs, lang, true, nil
		}
	}
	return nil, "", false, ErrNoTranscript
}

func (c *Client) fetchTrack(ctx context.Context, videoID, lang, kind string) ([]Segment, error) {
	u := fmt.Sprintf("https://video.google.com/timedtext?lang=%s&v=%s", url.QueryEscape(lang), url.QueryEscape(videoID))
	if kind != "" {
		u += "&kind=" + url.QueryEscape(kind)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	var doc timedtext
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		// Empty body means the track does not exist for this language.
		return nil, nil
	}
	return doc.segments(), nil
}

// Meta fetches title/author/thumbnail through the oEmbed endpoint.
func (c *Client) Meta(ctx context.Context, videoID string) (Metadata, error) {
	watch := "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	u := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(watch)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return Metadata{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetching video metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return Metadata{}, fmt.Errorf("video %s is unavailable or private", videoID)
	}
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}
	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Metadata{}, fmt.Errorf("decoding video metadata: %w", err)
	}
	return meta, nil
}

type timedtext struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedtextSeg `xml:"text"`
}

type timedtextSeg struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

func (d timedtext) segments() []Segment {
	var out []Segment
	for _, t := range d.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		out = append(out, Segment{Text: text, Start: t.Start, Duration: t.Dur})
	}
	return out
}

// ParseTimedText decodes a timedtext XML document into segments.
func ParseTimedText(data []byte) ([]Segment, error) {
	var doc timedtext
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.segments(), nil
}
