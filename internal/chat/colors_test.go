package chat

import (
	"fmt"
	"testing"
)

func TestAssignFollowsPaletteOrder(t *testing.T) {
	table := NewColorTable()

	for i := 0; i < len(palette); i++ {
		name := fmt.Sprintf("user%d", i)
		if got := table.Assign(name); got != palette[i] {
			t.Fatalf("user %d: expected %s, got %s", i, palette[i], got)
		}
	}
}

func TestAssignIsStablePerName(t *testing.T) {
	table := NewColorTable()

	first := table.Assign("alice")
	table.Assign("bob")
	if again := table.Assign("alice"); again != first {
		t.Fatalf("color changed on re-assign: %s then %s", first, again)
	}
}

func TestAssignWrapsAroundPalette(t *testing.T) {
	table := NewColorTable()

	for i := 0; i < len(palette); i++ {
		table.Assign(fmt.Sprintf("user%d", i))
	}
	if got := table.Assign("overflow"); got != palette[0] {
		t.Fatalf("expected wrap to %s, got %s", palette[0], got)
	}
}
