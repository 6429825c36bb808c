package models

import (
	"bytes"
	"encoding/json"
)

// DefaultCategories are seeded when the category collection is empty
var DefaultCategories = []string{"Web Development", "3D Animation", "Video Editing", "VFX"}

// Category is a named grouping of pitches. DisplayOrder defines the
// presentation order used when sequencing live mode.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
}

// Pitch is a presented project eligible for audience rating.
// Rating is derived from Ratings and is never stored on its own.
type Pitch struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Presenter   string    `json:"presenter"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	Visible     bool      `json:"visible"`
	Ratings     []float64 `json:"ratings"`
	Rating      float64   `json:"rating"`
}

// Mode is the broadcast view derived from the two live-state flags
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModePresenting Mode = "presenting"
	ModeShowcasing Mode = "showcasing"
)

// LiveState is the single process-wide broadcast record. Version increases
// by one on every successful merge so receivers can discard stale copies.
// Epoch changes on every server start; versions only compare within one epoch.
type LiveState struct {
	IsLive               bool    `json:"isLive"`
	CurrentPitchID       *string `json:"currentPitchId"`
	IsWinnerShowcaseLive bool    `json:"isWinnerShowcaseLive"`
	ShowcasedCategoryID  *string `json:"showcasedCategoryId"`
	Mode                 Mode    `json:"mode"`
	Version              uint64  `json:"version"`
	Epoch                string  `json:"epoch,omitempty"`
}

// DeriveMode maps the two flags onto a single view. Showcase wins when both
// flags are set.
func (s LiveState) DeriveMode() Mode {
	switch {
	case s.IsWinnerShowcaseLive:
		return ModeShowcasing
	case s.IsLive:
		return ModePresenting
	default:
		return ModeIdle
	}
}

// Clone returns a copy that shares no pointers with s
func (s LiveState) Clone() LiveState {
	c := s
	c.CurrentPitchID = cloneString(s.CurrentPitchID)
	c.ShowcasedCategoryID = cloneString(s.ShowcasedCategoryID)
	return c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// OptionalID is a nullable id that remembers whether it was present in a
// JSON document at all, so a patch can tell "absent" from "null".
type OptionalID struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON implements json.Marshaler
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// SetID builds a present OptionalID; nil means explicit null
func SetID(id *string) OptionalID {
	return OptionalID{Set: true, Value: cloneString(id)}
}

// LiveStatePatch is a partial LiveState. Only present fields are merged.
// ExpectedVersion, when given, makes the merge conditional.
type LiveStatePatch struct {
	IsLive               *bool           `json:"isLive,omitempty"`
	CurrentPitchID       OptionalID      `json:"currentPitchId"`
	IsWinnerShowcaseLive *bool           `json:"isWinnerShowcaseLive,omitempty"`
	ShowcasedCategoryID  OptionalID      `json:"showcasedCategoryId"`
	ExpectedVersion      *uint64         `json:"version,omitempty"`
	Mode                 json.RawMessage `json:"mode,omitempty"`  // derived, ignored on input
	Epoch                json.RawMessage `json:"epoch,omitempty"` // server owned, ignored on input
}

// Empty reports whether the patch changes nothing
func (p LiveStatePatch) Empty() bool {
	return p.IsLive == nil && !p.CurrentPitchID.Set &&
		p.IsWinnerShowcaseLive == nil && !p.ShowcasedCategoryID.Set
}

// MarshalJSON emits only the fields present in the patch
func (p LiveStatePatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5)
	if p.IsLive != nil {
		out["isLive"] = *p.IsLive
	}
	if p.CurrentPitchID.Set {
		out["currentPitchId"] = p.CurrentPitchID.Value
	}
	if p.IsWinnerShowcaseLive != nil {
		out["isWinnerShowcaseLive"] = *p.IsWinnerShowcaseLive
	}
	if p.ShowcasedCategoryID.Set {
		out["showcasedCategoryId"] = p.ShowcasedCategoryID.Value
	}
	if p.ExpectedVersion != nil {
		out["version"] = *p.ExpectedVersion
	}
	return json.Marshal(out)
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// Message is the envelope sent to stream clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Stream message types
const (
	MessageLiveState  = "live_state"
	MessagePitchRated = "pitch_rated"
	MessageReset      = "ratings_reset"
)

// PitchRated is the payload of a pitch_rated message
type PitchRated struct {
	PitchID string  `json:"pitchId"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// CategoryStanding is one leaderboard row
type CategoryStanding struct {
	Category Category `json:"category"`
	Winner   *Pitch   `json:"winner"`
	Pitches  []Pitch  `json:"pitches"`
}
