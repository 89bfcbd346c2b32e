package domain

import (
	"strings"
	"time"
)

// sampleText is the body used by the demo sheets.
var sampleText = strings.Join([]string{
	"This is the first paragraph of the text. Its main purpose is to provide quick context for the contents of this notation.",
	"",
	"It also works as a visual element in the grid.",
}, "\n")

// Seed returns the demo tree shipped on first launch and used as the
// fail-soft fallback when a persisted snapshot cannot be recovered.
func Seed() Snapshot {
	now := time.Now().UTC()

	newStack := func(id, parentID, title string, previewCount int) Stack {
		st := Stack{Base: Base{ID: id, ParentID: parentID, Title: title, CreatedAt: now, UpdatedAt: now}}
		if previewCount > 0 {
			st.PreviewCount = &previewCount
		}
		return st
	}
	newSheet := func(id, parentID, title, subtitle, body string) Sheet {
		return Sheet{
			Base:     Base{ID: id, ParentID: parentID, Title: title, CreatedAt: now, UpdatedAt: now},
			Subtitle: subtitle,
			Body:     body,
			Tags:     []string{},
			Margins:  DefaultMargins(),
		}
	}

	root := newStack(RootStackID, "", "Notations", 0)
	stackA := newStack(NewID(KindStack), root.ID, "This is a stack", 5)
	food := newStack(NewID(KindStack), root.ID, "Food Notes", 33)
	poems := newStack(NewID(KindStack), root.ID, "Poems", 25)

	noteA := newSheet(NewID(KindSheet), root.ID, "This is the title", "", sampleText)
	noteB := newSheet(NewID(KindSheet), root.ID, "This is a notation with a longer title", "", "")
	noteDate := newSheet(NewID(KindSheet), root.ID, "12-01-14", "", "")
	noteEtc := newSheet(NewID(KindSheet), root.ID, "ETC.", "", "")

	foodA := newSheet(NewID(KindSheet), food.ID, "Huckleberry Pie Recipe", "", sampleText)
	longBody := strings.TrimSuffix(strings.Repeat("A line of sample text to validate screen and print parity.\n", 80), "\n")
	foodB := newSheet(NewID(KindSheet), food.ID, "A Moveable Feast - Chapter 1", "Chapter 1 - Jan. 4 1920", longBody)
	foodB.Tags = []string{"first person", "biographical", "final draft", "chapter"}

	draft := newSheet(NewID(KindSheet), stackA.ID, "Draft", "", "Stack sample note.")
	poemsA := newSheet(NewID(KindSheet), poems.ID, "Poems", "", "Line one\nLine two\nLine three")

	root.Children = []string{stackA.ID, food.ID, noteA.ID, noteB.ID, poems.ID, noteDate.ID, noteEtc.ID}
	stackA.Children = []string{draft.ID}
	food.Children = []string{foodA.ID, foodB.ID}
	poems.Children = []string{poemsA.ID}

	stacks := map[string]Stack{
		root.ID:   root,
		stackA.ID: stackA,
		food.ID:   food,
		poems.ID:  poems,
	}
	sheets := map[string]Sheet{
		noteA.ID:    noteA,
		noteB.ID:    noteB,
		noteDate.ID: noteDate,
		noteEtc.ID:  noteEtc,
		foodA.ID:    foodA,
		foodB.ID:    foodB,
		draft.ID:    draft,
		poemsA.ID:   poemsA,
	}

	return Snapshot{
		Auth:           AuthState{},
		Settings:       DefaultSettings(),
		RootID:         root.ID,
		CurrentStackID: root.ID,
		Stacks:         stacks,
		Sheets:         sheets,
		UI:             UIState{},
	}
}
