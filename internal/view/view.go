package view

import (
	"encoding/json"
	"strings"

	"github.com/dgnsrekt/yt_agent/internal/classify"
	"github.com/dgnsrekt/yt_agent/internal/types"
)

// ID names a UI section the rendering layer can show.
type ID string

const (
	Form              ID = "form"
	QuantityOptions   ID = "quantity_options"
	PlaylistOptions   ID = "playlist_options"
	ServerDown        ID = "server_down"
	NotYoutubeNotice  ID = "not_youtube_notice"
	UnsupportedNotice ID = "unsupported_notice"
)

// State is the set of sections visible at one instant. It is always rebuilt
// from scratch; callers never patch a previous State.
type State struct {
	ids []ID
}

// NewState returns a State holding ids in order, dropping duplicates.
func NewState(ids ...ID) State {
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	return State{ids: out}
}

func (s State) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s State) Has(id ID) bool { return contains(s.ids, id) }

func (s State) Empty() bool { return len(s.ids) == 0 }

// Equal reports whether both states show the same sections.
func (s State) Equal(o State) bool {
	if len(s.ids) != len(o.ids) {
		return false
	}
	for _, id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

func (s State) String() string {
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = string(id)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewState(ids...)
	return nil
}

// Select maps a category and the server reachability to the sections to show.
// An unreachable server preempts every category; an unknown reachability
// renders nothing.
func Select(category classify.Category, reachability types.Reachability) State {
	switch reachability {
	case types.ReachabilityUnreachable:
		return NewState(ServerDown)
	case types.ReachabilityReachable:
	default:
		return NewState()
	}

	switch category {
	case classify.NotYoutube:
		return NewState(NotYoutubeNotice)
	case classify.SearchResults:
		return NewState(Form, QuantityOptions)
	case classify.WatchWithPlaylist:
		return NewState(Form, PlaylistOptions)
	case classify.Playlist, classify.SingleVideo, classify.Shorts,
		classify.Channel, classify.ChannelVideos, classify.ChannelShorts:
		return NewState(Form)
	default:
		return NewState(UnsupportedNotice)
	}
}

func contains(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
