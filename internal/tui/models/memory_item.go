package models

import (
	"fmt"
	"time"

	"github.com/brizzai/recall/internal/memories"
)

// MemoryItem wraps a Memory for display in the list
// Implements list.Item
type MemoryItem struct {
	Memory memories.Memory
}

func (i MemoryItem) Title() string {
	return i.Memory.Content
}

func (i MemoryItem) Description() string {
	when := i.Memory.Timestamp
	if t, err := time.Parse(time.RFC3339, i.Memory.Timestamp); err == nil {
		when = t.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%s · %s · %s", i.Memory.Category, i.Memory.Source, when)
}

func (i MemoryItem) FilterValue() string {
	return i.Memory.Content + " " + i.Memory.Category
}
