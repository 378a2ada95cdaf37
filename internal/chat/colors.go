package chat

import "sync"

// palette is the fixed color wheel users are assigned from, in round-robin
// order of first appearance.
var palette = []string{
	"#667eea", "#764ba2", "#f093fb", "#f5576c", "#4facfe",
	"#00f2fe", "#43e97b", "#38f9d7", "#ffecd2", "#fcb69f",
}

// ColorTable maps display names to palette colors. Assignments are
// first-seen-wins and live for the process lifetime, so a user who leaves
// and returns keeps a stable color.
type ColorTable struct {
	mu     sync.Mutex
	byName map[string]string
}

func NewColorTable() *ColorTable {
	return &ColorTable{
		byName: make(map[string]string),
	}
}

// Assign returns the color for username, drawing the next palette entry on
// first sight.
func (t *ColorTable) Assign(username string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if color, ok := t.byName[username]; ok {
		return color
	}
	color := palette[len(t.byName)%len(palette)]
	t.byName[username] = color
	return color
}

// Palette returns a copy of the color wheel.
func Palette() []string {
	out := make([]string, len(palette))
	copy(out, palette)
	return out
}
