package dispatch

import "strings"

// Options holds the checked values of the three option groups. A nil field
// means nothing was checked in that group.
type Options struct {
	Format   *string `json:"format,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Playlist *string `json:"playlist,omitempty"`
}

// Job describes one download request. It is built fresh for every submission
// and never modified afterwards.
type Job struct {
	URL      string  `json:"url"`
	Format   *string `json:"format,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Playlist *string `json:"playlist,omitempty"`
}

// NewJob builds a job for targetURL. Option values are copied so later
// changes to opts do not leak into the job.
func NewJob(targetURL string, opts Options) Job {
	return Job{
		URL:      strings.TrimSpace(targetURL),
		Format:   copyOpt(opts.Format),
		Quantity: copyOpt(opts.Quantity),
		Playlist: copyOpt(opts.Playlist),
	}
}

// Value returns a pointer to s, for building Options literals.
func Value(s string) *string { return &s }

func copyOpt(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
