package store

import (
	"time"

	"pagebuilder/api/internal/layout"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Project struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
}

type Page struct {
	ID        int64
	ProjectID int64
	Title     string
	CreatedAt time.Time
}

// Component is a positioned element on a page. Parent holds the comp_id of
// another component on the same page, or nil for top level components.
type Component struct {
	ID             int64
	PageID         int64
	CompID         string
	Parent         *string
	Left           int
	Top            int
	Width          int
	Height         int
	SecondaryState map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Component) Box() layout.Box {
	return layout.Box{Left: c.Left, Top: c.Top, Width: c.Width, Height: c.Height}
}

// ProjectComponent is a component listed together with its page title.
type ProjectComponent struct {
	Component
	PageTitle string
}
