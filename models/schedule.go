package models

import (
	"encoding/json"
	"strings"
)

// ScheduleBlock is a single task on a user's schedule. Blocks carry no stable
// id: personal blocks are located by comparing normalized content, shared
// blocks by their FamilyTag.
type ScheduleBlock struct {
	Title     string   `json:"title"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Period    string   `json:"period"` // "AM" | "PM" | ""
	Steps     []string `json:"steps"`
	Hidden    bool     `json:"hidden"`
	Completed bool     `json:"completed"`
	FamilyTag string   `json:"family_tag"`
}

type Preferences struct {
	Theme string `json:"theme"` // "light" | "dark" | "system"
}

type Profile struct {
	Blocks      []ScheduleBlock `json:"schedule_blocks"`
	Preferences Preferences     `json:"preferences"`
}

func DefaultProfile() Profile {
	return Profile{
		Blocks:      []ScheduleBlock{},
		Preferences: Preferences{Theme: "system"},
	}
}

// ParseProfile recovers a well-formed profile from whatever is stored.
// Malformed JSON, wrong top-level shapes and badly typed block fields all
// collapse to defaults; it never fails and never touches the stored value.
func ParseProfile(raw string) Profile {
	profile := DefaultProfile()
	if strings.TrimSpace(raw) == "" {
		return profile
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return profile
	}

	if items, ok := data["schedule_blocks"].([]interface{}); ok {
		for _, item := range items {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			profile.Blocks = append(profile.Blocks, blockFromMap(entry))
		}
	}

	if prefs, ok := data["preferences"].(map[string]interface{}); ok {
		theme := strings.ToLower(strings.TrimSpace(asString(prefs["theme"])))
		if theme == "light" || theme == "dark" || theme == "system" {
			profile.Preferences.Theme = theme
		}
	}

	return profile
}

// Encode serializes the profile for storage.
func (p Profile) Encode() string {
	if p.Blocks == nil {
		p.Blocks = []ScheduleBlock{}
	}
	out, err := json.Marshal(p)
	if err != nil {
		out, _ = json.Marshal(DefaultProfile())
	}
	return string(out)
}

// Normalize trims every string field, constrains the period to AM/PM/empty
// and drops empty steps. It is total and idempotent; every stored block and
// every match candidate passes through it first so comparisons are stable.
func (b ScheduleBlock) Normalize() ScheduleBlock {
	steps := make([]string, 0, len(b.Steps))
	for _, step := range b.Steps {
		if s := strings.TrimSpace(step); s != "" {
			steps = append(steps, s)
		}
	}

	period := strings.ToUpper(strings.TrimSpace(b.Period))
	if period != "AM" && period != "PM" {
		period = ""
	}

	return ScheduleBlock{
		Title:     strings.TrimSpace(b.Title),
		StartTime: strings.TrimSpace(b.StartTime),
		EndTime:   strings.TrimSpace(b.EndTime),
		Period:    period,
		Steps:     steps,
		Hidden:    b.Hidden,
		Completed: b.Completed,
		FamilyTag: strings.TrimSpace(b.FamilyTag),
	}
}

// Equal compares two already-normalized blocks field by field.
func (b ScheduleBlock) Equal(other ScheduleBlock) bool {
	if b.Title != other.Title || b.StartTime != other.StartTime ||
		b.EndTime != other.EndTime || b.Period != other.Period ||
		b.Hidden != other.Hidden || b.Completed != other.Completed ||
		b.FamilyTag != other.FamilyTag {
		return false
	}
	if len(b.Steps) != len(other.Steps) {
		return false
	}
	for i := range b.Steps {
		if b.Steps[i] != other.Steps[i] {
			return false
		}
	}
	return true
}

// MatchIndex locates a block without a stable id. Three tiers, tried in
// order, earliest list position wins within a tier:
//  1. full normalized equality,
//  2. title + start + end + period, ignoring steps and flags,
//  3. non-empty title only.
func MatchIndex(blocks []ScheduleBlock, candidate ScheduleBlock) int {
	cand := candidate.Normalize()

	for i, raw := range blocks {
		if raw.Normalize().Equal(cand) {
			return i
		}
	}

	for i, raw := range blocks {
		b := raw.Normalize()
		if b.Title == cand.Title && b.StartTime == cand.StartTime &&
			b.EndTime == cand.EndTime && b.Period == cand.Period {
			return i
		}
	}

	for i, raw := range blocks {
		b := raw.Normalize()
		if b.Title == cand.Title && b.Title != "" {
			return i
		}
	}

	return -1
}

// ReplaceByTag overwrites every block carrying the tag with the replacement.
func (p *Profile) ReplaceByTag(tag string, replacement ScheduleBlock) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	changed := false
	for i, block := range p.Blocks {
		if strings.TrimSpace(block.FamilyTag) == tag {
			p.Blocks[i] = replacement
			changed = true
		}
	}
	return changed
}

// RemoveByTag drops every block carrying the tag.
func (p *Profile) RemoveByTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	kept := make([]ScheduleBlock, 0, len(p.Blocks))
	for _, block := range p.Blocks {
		if strings.TrimSpace(block.FamilyTag) != tag {
			kept = append(kept, block)
		}
	}
	if len(kept) == len(p.Blocks) {
		return false
	}
	p.Blocks = kept
	return true
}

func blockFromMap(entry map[string]interface{}) ScheduleBlock {
	block := ScheduleBlock{
		Title:     asString(entry["title"]),
		StartTime: asString(entry["startTime"]),
		EndTime:   asString(entry["endTime"]),
		Period:    asString(entry["period"]),
		Hidden:    asBool(entry["hidden"]),
		Completed: asBool(entry["completed"]),
		FamilyTag: asString(entry["family_tag"]),
	}
	if steps, ok := entry["steps"].([]interface{}); ok {
		for _, step := range steps {
			if s, ok := step.(string); ok {
				block.Steps = append(block.Steps, s)
			}
		}
	}
	return block.Normalize()
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
