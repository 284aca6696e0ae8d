package domain

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      *string   `json:"icon,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

const FallbackCategoryColor = "#64748B"

var categoryColors = map[string]string{
	"Entertainment":    "#E50914",
	"Productivity":     "#4F46E5",
	"Cloud":            "#FF9900",
	"Design":           "#A259FF",
	"Developer Tools":  "#181717",
	"Communication":    "#4A154B",
	"AI Tools":         "#10A37F",
	"Marketing":        "#F59E0B",
	"Business":         "#06B6D4",
	"Security":         "#0094F5",
	"Education":        "#0A66C2",
	"Health & Fitness": "#1CBF73",
	"Gaming":           "#107C10",
	"Utilities":        "#64748B",
}

// CategoryColor returns the default colour for an auto-created category.
func CategoryColor(name string) string {
	if c, ok := categoryColors[name]; ok {
		return c
	}
	return FallbackCategoryColor
}
