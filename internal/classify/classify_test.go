package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Category
	}{
		{"empty", "", NotYoutube},
		{"garbage", "::not a url::", NotYoutube},
		{"other site", "https://example.com/", NotYoutube},
		{"marker only in query", "https://example.com/?ref=youtube.com/watch?v=abc", NotYoutube},
		{"search", "https://www.youtube.com/results?search_query=cats", SearchResults},
		{"watch with list", "https://www.youtube.com/watch?v=abc123&list=PL1", WatchWithPlaylist},
		{"watch with list reordered", "https://www.youtube.com/watch?list=PL1&v=abc123", WatchWithPlaylist},
		{"playlist page", "https://www.youtube.com/playlist?list=PL1", Playlist},
		{"watch", "https://www.youtube.com/watch?v=abc123", SingleVideo},
		{"watch reordered", "https://www.youtube.com/watch?t=42&v=abc123", SingleVideo},
		{"mobile watch", "https://m.youtube.com/watch?v=abc123", SingleVideo},
		{"shorts", "https://www.youtube.com/shorts/xyz", Shorts},
		{"channel", "https://www.youtube.com/@somehandle", Channel},
		{"channel trailing slash", "https://www.youtube.com/@somehandle/", Channel},
		{"channel videos", "https://www.youtube.com/@somehandle/videos", ChannelVideos},
		{"channel shorts", "https://www.youtube.com/@somehandle/shorts", ChannelShorts},
		{"channel shorts query", "https://www.youtube.com/@somehandle/shorts?view=0", ChannelShorts},
		{"channel shorts trailing slash", "https://www.youtube.com/@somehandle/shorts/", Shorts},
		{"channel community", "https://www.youtube.com/@somehandle/community", Unsupported},
		{"home", "https://www.youtube.com/", Unsupported},
		{"feed", "https://www.youtube.com/feed/subscriptions", Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.url); got != tt.want {
				t.Fatalf("Classify(%q) = %q; want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyWithoutMarkerIsNotYoutube(t *testing.T) {
	urls := []string{
		"https://vimeo.com/watch?v=1&list=2",
		"http://yt_downloader.local/",
		"https://youtu.be/abc",
		"chrome://newtab/",
		"about:blank",
	}
	for _, u := range urls {
		if got := Classify(u); got != NotYoutube {
			t.Fatalf("Classify(%q) = %q; want %q", u, got, NotYoutube)
		}
	}
}

func TestWatchWithListTakesPrecedence(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=a&list=b",
		"https://www.youtube.com/watch?v=a&list=b&index=3",
		"https://www.youtube.com/watch?v=a&playlist=x&list=b",
		"https://music.youtube.com/watch?v=a&list=RDAMVM",
	}
	for _, u := range urls {
		got := Classify(u)
		if got != WatchWithPlaylist {
			t.Fatalf("Classify(%q) = %q; want %q", u, got, WatchWithPlaylist)
		}
	}
}

func TestExplainReportsRule(t *testing.T) {
	name, cat := Explain("https://www.youtube.com/playlist?list=PL1")
	if cat != Playlist || name != "playlist-page" {
		t.Fatalf("Explain() = (%q, %q); want (%q, %q)", name, cat, "playlist-page", Playlist)
	}

	name, cat = Explain("https://www.youtube.com/")
	if cat != Unsupported || name != "" {
		t.Fatalf("Explain() = (%q, %q); want (\"\", %q)", name, cat, Unsupported)
	}
}

func TestRuleTableOrder(t *testing.T) {
	want := []Category{SearchResults, WatchWithPlaylist, Playlist, SingleVideo, Shorts, Channel, ChannelVideos, ChannelShorts}
	if len(Rules) != len(want) {
		t.Fatalf("len(Rules) = %d; want %d", len(Rules), len(want))
	}
	for i, r := range Rules {
		if r.Category != want[i] {
			t.Fatalf("Rules[%d] = %q; want %q", i, r.Category, want[i])
		}
	}
}
