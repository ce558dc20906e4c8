package model

import (
	"strings"

	"github.com/google/uuid"

	"pulseflow/internal/apperr"
)

// Column is stored inline on its board. Its name doubles as the status label
// of the tasks it holds.
type Column struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DefaultColumns is the layout offered for a new board.
func DefaultColumns() []Column {
	return []Column{
		{ID: uuid.New(), Name: "To Do"},
		{ID: uuid.New(), Name: "In Progress"},
		{ID: uuid.New(), Name: "Done"},
	}
}

// NormalizeColumns trims names, assigns missing ids and rejects empty or
// duplicate names. The input slice is not modified.
func NormalizeColumns(columns []Column) ([]Column, error) {
	if len(columns) == 0 {
		return nil, apperr.Validationf("a board needs at least one column")
	}
	out := make([]Column, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, apperr.Validationf("all column names are required")
		}
		if seen[name] {
			return nil, apperr.Validationf("column name %q is used twice", name)
		}
		seen[name] = true
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		out[i] = Column{ID: id, Name: name}
	}
	return out, nil
}
