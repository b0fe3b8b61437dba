package board

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/hull/internal/ledger"
)

// Defaults applied on create.
const (
	DefaultColor      = "yellow"
	DefaultItemStatus = "todo"
)

// Well-known worker statuses. The vocabulary is open; any non-empty status is accepted.
const (
	WorkerIdle   = "Idle"
	WorkerBusy   = "Busy"
	WorkerDone   = "Done"
	WorkerFailed = "Failed"
)

const (
	maxNameLen  = 200
	maxTitleLen = 500
	maxShortLen = 64
	maxWorkerID = 128
)

// Group is a row of wip_groups.
type Group struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Position  int64       `json:"position"`
	CreatedAt ledger.Time `json:"created_at"`
	UpdatedAt ledger.Time `json:"updated_at"`
}

// Item is a row of notes.
type Item struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Color     string      `json:"color"`
	GroupID   int64       `json:"wip_group_id"`
	Position  int64       `json:"position"`
	Status    string      `json:"status"`
	CreatedAt ledger.Time `json:"created_at"`
	UpdatedAt ledger.Time `json:"updated_at"`
}

// Worker is a row of sprites.
type Worker struct {
	ID        string      `json:"id"`
	Sigil     string      `json:"sigil"`
	Status    string      `json:"status"`
	GroupID   *int64      `json:"wip_group_id"`
	LastSeen  ledger.Time `json:"last_seen"`
	CreatedAt ledger.Time `json:"created_at"`
	UpdatedAt ledger.Time `json:"updated_at"`
}

// GroupEvent is the ledger payload of group events.
type GroupEvent struct {
	Group
	Shifts []Shift `json:"sibling_shifts,omitempty"`
}

// ItemEvent is the ledger payload of item events.
type ItemEvent struct {
	Item
	Shifts []Shift `json:"sibling_shifts,omitempty"`
}

// NewGroup is the input of CreateGroup.
type NewGroup struct {
	Name string `json:"name"`
}

// GroupPatch is the input of UpdateGroup. Nil fields are left unchanged.
type GroupPatch struct {
	Name     *string `json:"name,omitempty"`
	Position *int64  `json:"position,omitempty"`
}

// NewItem is the input of CreateItem. An empty Color gets DefaultColor.
type NewItem struct {
	Title   string `json:"title"`
	Color   string `json:"color"`
	GroupID int64  `json:"wip_group_id"`
}

// ItemPatch is the input of UpdateItem. Nil fields are left unchanged.
type ItemPatch struct {
	Title    *string `json:"title,omitempty"`
	Color    *string `json:"color,omitempty"`
	GroupID  *int64  `json:"wip_group_id,omitempty"`
	Position *int64  `json:"position,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// NewWorker is the input of CreateWorker. An empty ID gets a generated UUIDv7.
type NewWorker struct {
	ID      string `json:"id"`
	Sigil   string `json:"sigil"`
	GroupID *int64 `json:"wip_group_id,omitempty"`
}

// normalize trims s and puts it in Unicode NFC so equal-looking text is stored identically.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (n *NewGroup) normalize(op string) error {
	n.Name = normalize(n.Name)
	return checkText(op, "name", n.Name, maxNameLen)
}

func (p *GroupPatch) normalize(op string) error {
	if p.Name == nil && p.Position == nil {
		return invalid(op, "patch has no fields")
	}
	if p.Name != nil {
		v := normalize(*p.Name)
		p.Name = &v
		if err := checkText(op, "name", v, maxNameLen); err != nil {
			return err
		}
	}
	return nil
}

func (n *NewItem) normalize(op string) error {
	n.Title = normalize(n.Title)
	n.Color = normalize(n.Color)
	if n.Color == "" {
		n.Color = DefaultColor
	}
	if err := checkText(op, "title", n.Title, maxTitleLen); err != nil {
		return err
	}
	if err := checkText(op, "color", n.Color, maxShortLen); err != nil {
		return err
	}
	if n.GroupID <= 0 {
		return invalid(op, "wip_group_id must be positive")
	}
	return nil
}

func (p *ItemPatch) normalize(op string) error {
	if p.Title == nil && p.Color == nil && p.GroupID == nil && p.Position == nil && p.Status == nil {
		return invalid(op, "patch has no fields")
	}
	fields := []struct {
		name string
		v    **string
		max  int
	}{
		{"title", &p.Title, maxTitleLen},
		{"color", &p.Color, maxShortLen},
		{"status", &p.Status, maxShortLen},
	}
	for _, f := range fields {
		if *f.v == nil {
			continue
		}
		v := normalize(**f.v)
		*f.v = &v
		if err := checkText(op, f.name, v, f.max); err != nil {
			return err
		}
	}
	if p.GroupID != nil && *p.GroupID <= 0 {
		return invalid(op, "wip_group_id must be positive")
	}
	return nil
}

func (n *NewWorker) normalize(op string) error {
	n.ID = strings.TrimSpace(n.ID)
	n.Sigil = normalize(n.Sigil)
	if utf8.RuneCountInString(n.ID) > maxWorkerID || strings.ContainsAny(n.ID, " \t\r\n") {
		return invalid(op, "id must be a token of at most %d characters", maxWorkerID)
	}
	if err := checkText(op, "sigil", n.Sigil, maxShortLen); err != nil {
		return err
	}
	if n.GroupID != nil && *n.GroupID <= 0 {
		return invalid(op, "wip_group_id must be positive")
	}
	return nil
}

func checkText(op, field, v string, max int) error {
	if v == "" {
		return invalid(op, "%s is required", field)
	}
	if utf8.RuneCountInString(v) > max {
		return invalid(op, "%s exceeds %d characters", field, max)
	}
	return nil
}
