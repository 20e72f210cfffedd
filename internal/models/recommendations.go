package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecommendationKind discriminates RecommendationItem variants.
type RecommendationKind int

const (
	// RecommendationText is a plain string item.
	RecommendationText RecommendationKind = iota
	// RecommendationAction is a {title, action} item.
	RecommendationAction
)

// RecommendationItem is either a plain string or a {title, action} pair.
type RecommendationItem struct {
	Kind   RecommendationKind
	Text   string
	Title  string
	Action string
}

// UnmarshalJSON accepts a JSON string or a {title, action} object.
func (r *RecommendationItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty recommendation item")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RecommendationItem{Kind: RecommendationText, Text: s}
		return nil
	case '{':
		var obj struct {
			Title  string `json:"title"`
			Action string `json:"action"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = RecommendationItem{Kind: RecommendationAction, Title: obj.Title, Action: obj.Action}
		return nil
	}
	return fmt.Errorf("unsupported recommendation item: %s", string(data))
}

// MarshalJSON writes the item back in its original shape.
func (r RecommendationItem) MarshalJSON() ([]byte, error) {
	if r.Kind == RecommendationAction {
		return json.Marshal(struct {
			Title  string `json:"title"`
			Action string `json:"action"`
		}{r.Title, r.Action})
	}
	return json.Marshal(r.Text)
}

// Display renders the item as a single line.
func (r RecommendationItem) Display() string {
	if r.Kind == RecommendationText {
		return r.Text
	}
	switch {
	case r.Title == "":
		return r.Action
	case r.Action == "":
		return r.Title
	}
	return r.Title + ": " + r.Action
}

// RecommendationSet is the backend /recommendations payload.
type RecommendationSet struct {
	Date            string               `json:"date"`
	Scope           string               `json:"scope"`
	Summary         string               `json:"summary"`
	Recommendations []RecommendationItem `json:"recommendations"`
	CreatedAt       string               `json:"created_at"`
}

// Lines returns every item's display string, in order.
func (s *RecommendationSet) Lines() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Recommendations))
	for _, item := range s.Recommendations {
		out = append(out, item.Display())
	}
	return out
}
