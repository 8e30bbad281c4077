package main

import (
	"github.com/energye/systray"
)

// SystrayInterface abstracts systray operations for testing.
type SystrayInterface interface {
	AddMenuItem(title, tooltip string) MenuItem
	AddSeparator()
	SetIcon(iconBytes []byte)
	SetTooltip(tooltip string)
	SetOnClick(fn func(menu systray.IMenu))
	Quit()
}

// RealSystray implements SystrayInterface using the actual systray library.
type RealSystray struct{}

func (*RealSystray) AddMenuItem(title, tooltip string) MenuItem {
	return &RealMenuItem{MenuItem: systray.AddMenuItem(title, tooltip)}
}

func (*RealSystray) AddSeparator() {
	systray.AddSeparator()
}

func (*RealSystray) SetIcon(iconBytes []byte) {
	systray.SetIcon(iconBytes)
}

func (*RealSystray) SetTooltip(tooltip string) {
	systray.SetTooltip(tooltip)
}

func (*RealSystray) SetOnClick(fn func(menu systray.IMenu)) {
	systray.SetOnClick(fn)
	systray.SetOnRClick(fn)
}

func (*RealSystray) Quit() {
	systray.Quit()
}

// MockSystray implements SystrayInterface for testing.
type MockSystray struct {
	tooltip string
	items   []*MockMenuItem
	icons   int
	quit    bool
}

func (m *MockSystray) AddMenuItem(title, tooltip string) MenuItem {
	item := &MockMenuItem{title: title, tooltip: tooltip}
	m.items = append(m.items, item)
	return item
}

func (m *MockSystray) AddSeparator() {
	m.items = append(m.items, &MockMenuItem{title: "---"})
}

func (m *MockSystray) SetIcon(iconBytes []byte) {
	if len(iconBytes) > 0 {
		m.icons++
	}
}

func (m *MockSystray) SetTooltip(tooltip string) {
	m.tooltip = tooltip
}

func (*MockSystray) SetOnClick(_ func(menu systray.IMenu)) {
	// No-op for testing
}

func (m *MockSystray) Quit() {
	m.quit = true
}

// item returns the first menu item with the given title, or nil.
func (m *MockSystray) item(title string) *MockMenuItem {
	for _, it := range m.items {
		if it.title == title {
			return it
		}
	}
	return nil
}
