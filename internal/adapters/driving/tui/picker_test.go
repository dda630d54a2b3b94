package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(p *Picker, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = p.Update(m)
	}
	return cmd
}

func TestPicker_ToggleAndConfirm(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base", "B-Base", "C-Base"}, nil, nil)

	cmd := press(p,
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeySpace},
		runes("j"),
		runes("x"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	assert.NotNil(t, cmd)
	assert.True(t, p.Confirmed())
	assert.Equal(t, []string{"B-Base", "C-Base"}, p.Selected())
}

func TestPicker_Preselected(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base", "B-Base"}, []string{"B-Base"}, nil)

	assert.Equal(t, []string{"B-Base"}, p.Selected())
	assert.False(t, p.Confirmed())
}

func TestPicker_AllTogglesEverything(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base", "B-Base"}, []string{"A-Base"}, nil)

	press(p, runes("a"))
	assert.Equal(t, []string{"A-Base", "B-Base"}, p.Selected())

	press(p, runes("a"))
	assert.Empty(t, p.Selected())
}

func TestPicker_CursorStaysInBounds(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base", "B-Base"}, nil, nil)

	press(p, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"A-Base"}, p.Selected())

	press(p, runes("j"), runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"A-Base", "B-Base"}, p.Selected())
}

func TestPicker_QuitDoesNotConfirm(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base"}, nil, nil)

	cmd := press(p, tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyEsc})

	assert.NotNil(t, cmd)
	assert.False(t, p.Confirmed())
}

func TestPicker_EmptyList(t *testing.T) {
	p := NewPicker("Pick", nil, nil, nil)

	press(p, tea.KeyMsg{Type: tea.KeySpace}, runes("a"))

	assert.Empty(t, p.Selected())
	assert.Contains(t, p.View(), "No processed collections")
}

func TestPicker_ViewShowsItemsAndHelp(t *testing.T) {
	p := NewPicker("Select the relevant acts", []string{"Customs_Act-Base"}, nil, nil)

	view := p.View()

	assert.Contains(t, view, "Select the relevant acts")
	assert.Contains(t, view, "Customs_Act-Base")
	assert.Contains(t, view, "enter confirm")
}

func TestPicker_IgnoresNonKeyMessages(t *testing.T) {
	p := NewPicker("Pick", []string{"A-Base"}, nil, nil)

	_, cmd := p.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Nil(t, cmd)
}
