package classify

import (
	"regexp"
	"strings"
)

// Category tags the kind of YouTube page a tab is showing.
type Category string

const (
	NotYoutube        Category = "not_youtube"
	SearchResults     Category = "search_results"
	Playlist          Category = "playlist"
	WatchWithPlaylist Category = "watch_with_playlist"
	SingleVideo       Category = "single_video"
	Shorts            Category = "shorts"
	Channel           Category = "channel"
	ChannelVideos     Category = "channel_videos"
	ChannelShorts     Category = "channel_shorts"
	Unsupported       Category = "unsupported"
)

// DomainMarker must appear in the scheme/host/path part of a URL for it to be
// treated as a YouTube page.
const DomainMarker = "youtube.com"

// Rule maps a URL predicate to a category. Rules are evaluated in table order
// and the first match wins.
type Rule struct {
	Name     string
	Category Category
	Match    func(url string) bool
}

var (
	watchVideoPattern    = regexp.MustCompile(`/watch\?(?:[^#]*&)?v=`)
	channelRootPattern   = regexp.MustCompile(`youtube\.com/@[^/?#]+/?(?:[?#].*)?$`)
	channelVideosPattern = regexp.MustCompile(`youtube\.com/@[^/?#]+/videos/?(?:[?#].*)?$`)
	// "@h/shorts/" never reaches this rule; the earlier shorts rule takes it.
	channelShortsPattern = regexp.MustCompile(`youtube\.com/@[^/?#]+/shorts(?:[?#].*)?$`)
)

func containsAll(parts ...string) func(string) bool {
	return func(url string) bool {
		for _, p := range parts {
			if !strings.Contains(url, p) {
				return false
			}
		}
		return true
	}
}

func isWatch(url string) bool {
	return watchVideoPattern.MatchString(url) || strings.Contains(url, "watch?v=")
}

// Rules is the ordered rule table applied to URLs that carry the domain
// marker. Several predicates overlap (a watch-with-list URL also satisfies
// the bare watch rule), so the order is significant.
var Rules = []Rule{
	{Name: "search", Category: SearchResults, Match: containsAll("youtube.com/results?search_query=")},
	{Name: "watch-with-list", Category: WatchWithPlaylist, Match: func(url string) bool {
		return isWatch(url) && strings.Contains(url, "list=")
	}},
	{Name: "playlist-page", Category: Playlist, Match: containsAll("playlist", "list=")},
	{Name: "watch", Category: SingleVideo, Match: isWatch},
	{Name: "shorts", Category: Shorts, Match: containsAll("/shorts/")},
	{Name: "channel-root", Category: Channel, Match: channelRootPattern.MatchString},
	{Name: "channel-videos", Category: ChannelVideos, Match: channelVideosPattern.MatchString},
	{Name: "channel-shorts", Category: ChannelShorts, Match: channelShortsPattern.MatchString},
}

// Classify maps a tab URL to its content category. It never fails: inputs
// without the domain marker (including empty or malformed strings) are
// NotYoutube and YouTube URLs no rule recognises are Unsupported.
func Classify(rawURL string) Category {
	_, category := Explain(rawURL)
	return category
}

// Explain is Classify that also reports the name of the deciding rule.
// The rule name is empty for NotYoutube and Unsupported.
func Explain(rawURL string) (string, Category) {
	url := strings.TrimSpace(rawURL)
	if !hasDomainMarker(url) {
		return "", NotYoutube
	}
	for _, r := range Rules {
		if r.Match(url) {
			return r.Name, r.Category
		}
	}
	return "", Unsupported
}

// IsYouTube reports whether the URL carries the domain marker.
func IsYouTube(rawURL string) bool {
	return hasDomainMarker(strings.TrimSpace(rawURL))
}

func hasDomainMarker(url string) bool {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return strings.Contains(strings.ToLower(url), DomainMarker)
}
