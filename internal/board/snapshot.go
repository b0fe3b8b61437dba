package board

import (
	"context"
)

// Snapshot is the full content of the domain tables.
type Snapshot struct {
	Groups  []Group  `json:"wip_groups"`
	Items   []Item   `json:"notes"`
	Workers []Worker `json:"sprites"`
}

// Snapshot reads every domain table.
func (g *Gateway) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Groups, err = g.ListGroups(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Items, err = queryItems(ctx, g.store.DB(), `SELECT `+itemColumns+` FROM notes ORDER BY id`); err != nil {
		return Snapshot{}, classify("snapshot", err)
	}
	if s.Workers, err = g.ListWorkers(ctx); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
