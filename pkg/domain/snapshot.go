package domain

import (
	"encoding/json"
	"math"
	"strings"
)

// Font size bounds applied when normalizing settings. Sizes snap to the
// nearest step inside the range.
const (
	FontSizeMin  = 10
	FontSizeMax  = 100
	FontSizeStep = 2
)

// AuthState records the local login flag. There is no remote account; the
// flag only gates the login view.
type AuthState struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username"`
}

// UIState holds presentation flags persisted alongside the tree.
type UIState struct {
	SelectedCardID string `json:"selectedCardId,omitempty"`
	SettingsOpen   bool   `json:"settingsOpen"`
	TagsHidden     bool   `json:"tagsHidden"`
	ZenMode        bool   `json:"zenMode"`
	TypewriterMode bool   `json:"typewriterMode"`
}

// Settings holds document presentation preferences. Unknown fields from
// older or newer snapshots are preserved in Extra and written back verbatim
// on save.
type Settings struct {
	PaperSize  string
	FontFamily string
	FontSize   float64
	LineHeight float64
	Margins    Margins

	Extra map[string]json.RawMessage
}

// DefaultSettings returns the stock preferences.
func DefaultSettings() Settings {
	return Settings{
		PaperSize:  "letter",
		FontFamily: "monospace",
		FontSize:   18,
		LineHeight: 1.5,
		Margins:    DefaultMargins(),
	}
}

// settingsJSON mirrors the known wire fields of Settings.
type settingsJSON struct {
	PaperSize  string  `json:"paperSize"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	LineHeight float64 `json:"lineHeight"`
	Margins    Margins `json:"margins"`
}

var settingsKnownKeys = map[string]struct{}{
	"paperSize":  {},
	"fontFamily": {},
	"fontSize":   {},
	"lineHeight": {},
	"margins":    {},
}

// MarshalJSON writes known fields plus any preserved unknown fields.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+5)
	for k, v := range s.Extra {
		out[k] = v
	}
	known, err := json.Marshal(settingsJSON{
		PaperSize:  s.PaperSize,
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		LineHeight: s.LineHeight,
		Margins:    s.Margins,
	})
	if err != nil {
		return nil, err
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	for k, v := range knownMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads known fields and stashes everything else in Extra.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var known settingsJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	s.PaperSize = known.PaperSize
	s.FontFamily = known.FontFamily
	s.FontSize = known.FontSize
	s.LineHeight = known.LineHeight
	s.Margins = known.Margins
	s.Extra = nil
	for k, v := range raw {
		if _, ok := settingsKnownKeys[k]; ok {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[k] = v
	}
	return nil
}

// NormalizeFontSize clamps a size into range and snaps it to the step grid.
func NormalizeFontSize(value, fallback float64) float64 {
	base := value
	if math.IsNaN(base) || math.IsInf(base, 0) {
		base = fallback
	}
	clamped := math.Max(FontSizeMin, math.Min(FontSizeMax, base))
	stepped := math.Round(clamped/FontSizeStep) * FontSizeStep
	return math.Max(FontSizeMin, math.Min(FontSizeMax, stepped))
}

// NormalizeSettings repairs each preference field-wise against the defaults.
func NormalizeSettings(raw Settings) Settings {
	def := DefaultSettings()
	out := raw
	if strings.TrimSpace(out.PaperSize) == "" {
		out.PaperSize = def.PaperSize
	}
	if strings.TrimSpace(out.FontFamily) == "" {
		out.FontFamily = def.FontFamily
	}
	out.FontSize = NormalizeFontSize(out.FontSize, def.FontSize)
	if math.IsNaN(out.LineHeight) || math.IsInf(out.LineHeight, 0) || out.LineHeight <= 0 {
		out.LineHeight = def.LineHeight
	}
	out.Margins = NormalizeMargins(out.Margins, def.Margins)
	return out
}

// Snapshot is the full persisted state. Every save transmits the whole
// snapshot; there is no incremental form.
type Snapshot struct {
	Auth           AuthState         `json:"auth"`
	Settings       Settings          `json:"settings"`
	RootID         string            `json:"rootId"`
	CurrentStackID string            `json:"currentStackId"`
	ActiveSheetID  string            `json:"activeSheetId,omitempty"`
	Stacks         map[string]Stack  `json:"stacks"`
	Sheets         map[string]Sheet  `json:"sheets"`
	UI             UIState           `json:"ui"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Stacks = make(map[string]Stack, len(s.Stacks))
	for id, st := range s.Stacks {
		cp := st
		cp.Children = append([]string(nil), st.Children...)
		if st.PreviewCount != nil {
			n := *st.PreviewCount
			cp.PreviewCount = &n
		}
		out.Stacks[id] = cp
	}
	out.Sheets = make(map[string]Sheet, len(s.Sheets))
	for id, sh := range s.Sheets {
		cp := sh
		cp.Tags = append([]string(nil), sh.Tags...)
		out.Sheets[id] = cp
	}
	if s.Settings.Extra != nil {
		out.Settings.Extra = make(map[string]json.RawMessage, len(s.Settings.Extra))
		for k, v := range s.Settings.Extra {
			out.Settings.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Normalize repairs a loaded snapshot. Settings fall back field-wise, sheet
// tags and margins are re-normalized, children lists are pruned of dangling
// or duplicated ids, unreachable nodes are dropped, and focus pointers that
// no longer resolve reset toward the root. When the root stack itself is
// missing the snapshot is unrecoverable and the seed state is returned.
func Normalize(raw Snapshot) Snapshot {
	root, ok := raw.Stacks[raw.RootID]
	if raw.RootID == "" || !ok || root.ParentID != "" {
		return Seed()
	}

	s := raw.Clone()
	s.Settings = NormalizeSettings(s.Settings)

	// Walk from the root, keeping only reachable nodes whose parent pointer
	// agrees with the children list that reached them.
	keptStacks := make(map[string]Stack, len(s.Stacks))
	keptSheets := make(map[string]Sheet, len(s.Sheets))
	visited := make(map[string]struct{}, len(s.Stacks)+len(s.Sheets))

	var walk func(id string)
	walk = func(id string) {
		st, ok := s.Stacks[id]
		if !ok {
			return
		}
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}

		children := make([]string, 0, len(st.Children))
		childSeen := make(map[string]struct{}, len(st.Children))
		for _, childID := range st.Children {
			if _, dup := childSeen[childID]; dup {
				continue
			}
			if child, ok := s.Stacks[childID]; ok && child.ParentID == id {
				childSeen[childID] = struct{}{}
				children = append(children, childID)
				walk(childID)
				continue
			}
			if sheet, ok := s.Sheets[childID]; ok && sheet.ParentID == id {
				if _, seen := visited[childID]; seen {
					continue
				}
				visited[childID] = struct{}{}
				childSeen[childID] = struct{}{}
				children = append(children, childID)
				sheet.Title = SafeTitle(sheet.Title, DefaultSheetTitle)
				sheet.Tags = NormalizeTags(sheet.Tags)
				sheet.Margins = NormalizeMargins(sheet.Margins, s.Settings.Margins)
				keptSheets[childID] = sheet
			}
		}
		st.Children = children
		st.Title = SafeTitle(st.Title, DefaultStackTitle)
		keptStacks[id] = st
	}
	walk(s.RootID)

	s.Stacks = keptStacks
	s.Sheets = keptSheets

	if _, ok := s.Stacks[s.CurrentStackID]; !ok {
		s.CurrentStackID = s.RootID
	}
	if _, ok := s.Sheets[s.ActiveSheetID]; !ok {
		s.ActiveSheetID = ""
	}
	if s.UI.SelectedCardID != "" {
		_, isStack := s.Stacks[s.UI.SelectedCardID]
		_, isSheet := s.Sheets[s.UI.SelectedCardID]
		if !isStack && !isSheet {
			s.UI.SelectedCardID = ""
		}
	}
	return s
}
