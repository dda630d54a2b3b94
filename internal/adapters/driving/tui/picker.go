package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/styles"
)

// Picker is a multi-select list of collections.
type Picker struct {
	title     string
	items     []string
	checked   []bool
	cursor    int
	keys      *keymap.KeyMap
	styles    *styles.Styles
	confirmed bool
}

// NewPicker creates a picker over items with preselected entries checked.
func NewPicker(title string, items, preselected []string, s *styles.Styles) *Picker {
	if s == nil {
		s = styles.DefaultStyles()
	}
	checked := make([]bool, len(items))
	for i, item := range items {
		for _, p := range preselected {
			if p == item {
				checked[i] = true
			}
		}
	}
	return &Picker{
		title:   title,
		items:   items,
		checked: checked,
		keys:    keymap.DefaultKeyMap(),
		styles:  s,
	}
}

// Init implements tea.Model.
func (p *Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	s := km.String()
	switch {
	case keymap.Matches(s, p.keys.Quit):
		return p, tea.Quit
	case keymap.Matches(s, p.keys.Confirm):
		p.confirmed = true
		return p, tea.Quit
	case keymap.Matches(s, p.keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case keymap.Matches(s, p.keys.Down):
		if p.cursor < len(p.items)-1 {
			p.cursor++
		}
	case keymap.Matches(s, p.keys.Toggle):
		if len(p.items) > 0 {
			p.checked[p.cursor] = !p.checked[p.cursor]
		}
	case keymap.Matches(s, p.keys.All):
		all := p.allChecked()
		for i := range p.checked {
			p.checked[i] = !all
		}
	}
	return p, nil
}

func (p *Picker) allChecked() bool {
	for _, c := range p.checked {
		if !c {
			return false
		}
	}
	return len(p.checked) > 0
}

// View implements tea.Model.
func (p *Picker) View() string {
	var b strings.Builder
	b.WriteString(p.styles.Heading.Render(p.title))
	b.WriteString("\n\n")

	if len(p.items) == 0 {
		b.WriteString(p.styles.Muted.Render("No processed collections"))
		b.WriteString("\n")
	}
	for i, item := range p.items {
		cursor := "  "
		if i == p.cursor {
			cursor = p.styles.Cursor.Render("> ")
		}
		box := "[ ] "
		line := p.styles.Normal.Render(item)
		if p.checked[i] {
			box = p.styles.Checked.Render("[x] ")
			line = p.styles.Checked.Render(item)
		}
		b.WriteString(cursor + box + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(p.styles.Help.Render(helpLine(p.keys.ShortHelp())))
	b.WriteString("\n")
	return b.String()
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Confirmed reports whether the user accepted the selection.
func (p *Picker) Confirmed() bool {
	return p.confirmed
}

// Selected returns the checked items in list order.
func (p *Picker) Selected() []string {
	var out []string
	for i, item := range p.items {
		if p.checked[i] {
			out = append(out, item)
		}
	}
	return out
}
