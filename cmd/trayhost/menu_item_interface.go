package main

import "github.com/energye/systray"

// MenuItem is the subset of systray menu item behavior the tray uses,
// implemented by real systray items and by mocks in tests.
type MenuItem interface {
	Disable()
	Enable()
	SetTitle(string)
	Click(func())
}

// RealMenuItem wraps a real systray.MenuItem to implement our MenuItem interface.
type RealMenuItem struct {
	*systray.MenuItem
}

// Ensure RealMenuItem implements MenuItem interface.
var _ MenuItem = (*RealMenuItem)(nil)

// Click sets the click handler.
func (r *RealMenuItem) Click(handler func()) {
	r.MenuItem.Click(handler)
}

// MockMenuItem implements MenuItem for testing without calling systray functions.
type MockMenuItem struct {
	clickHandler func()
	title        string
	tooltip      string
	disabled     bool
}

// Ensure MockMenuItem implements MenuItem interface.
var _ MenuItem = (*MockMenuItem)(nil)

// Disable marks the item as disabled.
func (m *MockMenuItem) Disable() {
	m.disabled = true
}

// Enable marks the item as enabled.
func (m *MockMenuItem) Enable() {
	m.disabled = false
}

// SetTitle sets the title.
func (m *MockMenuItem) SetTitle(title string) {
	m.title = title
}

// Click sets the click handler.
func (m *MockMenuItem) Click(handler func()) {
	m.clickHandler = handler
}
