// internal/ui/picker.go

package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"loon/internal/models"
)

// hostItem implements list.Item for a roster record.
type hostItem struct {
	host   models.HostRecord
	active bool
}

func (i hostItem) Title() string {
	if i.active {
		return "<" + i.host.Alias + ">"
	}
	return i.host.Alias
}

func (i hostItem) Description() string {
	return fmt.Sprintf("%s@%s:%d", i.host.Username, i.host.Address, i.host.Port)
}

func (i hostItem) FilterValue() string { return i.host.Alias }

type pickerModel struct {
	list     list.Model
	choice   *models.HostRecord
	quitting bool
}

func newPickerModel(reg models.Registry) pickerModel {
	items := make([]list.Item, 0, len(reg.Available))
	for _, h := range reg.Available {
		items = append(items, hostItem{host: h, active: h.Equal(reg.Active)})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Switch active host"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				host := item.host
				m.choice = &host
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.quitting || m.choice != nil {
		return ""
	}
	return m.list.View()
}

// PickHost runs the interactive picker over the roster and returns the
// chosen record. ok is false when the user backed out.
func PickHost(reg models.Registry) (models.HostRecord, bool, error) {
	program := tea.NewProgram(newPickerModel(reg), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return models.HostRecord{}, false, err
	}
	m, ok := final.(pickerModel)
	if !ok || m.choice == nil {
		return models.HostRecord{}, false, nil
	}
	return *m.choice, true, nil
}
