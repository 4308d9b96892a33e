package types

// Tab is a weak handle to a browser tab. It is looked up on demand and never
// cached across coordination steps because the user may close it at any time.
type Tab struct {
	ID       string `json:"id"`
	WindowID int    `json:"window_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}

// TabQuery filters tabs. URLPattern uses Chrome match-pattern syntax,
// e.g. "*://*.youtube.com/*". An empty pattern matches every page.
type TabQuery struct {
	URLPattern string
}
