package core

import "time"

// PreviewSummary contains the counts shown before a sync is confirmed.
type PreviewSummary struct {
	FetchedRows int `json:"fetchedRows"`
	DeleteRows  int `json:"deleteRows"`
	UpdateRows  int `json:"updateRows"`
	AddRows     int `json:"addRows"`
}

// UpdateDiff is a before/after view of one item a sync will update.
type UpdateDiff struct {
	ID       string   `json:"id"`
	Current  RawRow   `json:"current"`
	Incoming RawRow   `json:"incoming"`
	Changed  []string `json:"changed"`
}

// SyncPreview is a computed diff waiting for confirmation. At most one
// preview is pending per event; a newer one supersedes it.
type SyncPreview struct {
	ID             string         `json:"id"`
	Event          string         `json:"event"`
	SpreadsheetURL string         `json:"spreadsheetUrl"`
	SheetName      string         `json:"sheetName"`
	CreatedAt      time.Time      `json:"createdAt"`
	Summary        PreviewSummary `json:"summary"`
	Diff           SheetDiff      `json:"diff"`
	UpdateDiffs    []UpdateDiff   `json:"updateDiffs"`
}

// SyncResult reports a committed sync.
type SyncResult struct {
	Event   string `json:"event"`
	Deleted int    `json:"deleted"`
	Updated int    `json:"updated"`
	Added   int    `json:"added"`
}

// newSyncPreview builds the preview for diff, with field-level changes for
// every update.
func newSyncPreview(id, event, url, sheet string, now time.Time, current []ShoppingItem, fetched int, diff SheetDiff) *SyncPreview {
	byID := make(map[string]ShoppingItem, len(current))
	for _, it := range current {
		byID[it.ID] = it
	}

	updates := make([]UpdateDiff, 0, len(diff.ToUpdate))
	for _, u := range diff.ToUpdate {
		prev := byID[u.ID]
		var changed []string
		if prev.Title != u.Title {
			changed = append(changed, "title")
		}
		if !equalPrice(prev.Price, u.Price) {
			changed = append(changed, "price")
		}
		if prev.Remarks != u.Remarks {
			changed = append(changed, "remarks")
		}
		updates = append(updates, UpdateDiff{
			ID:       u.ID,
			Current:  prev.Row(),
			Incoming: u.Row(),
			Changed:  changed,
		})
	}

	return &SyncPreview{
		ID:             id,
		Event:          event,
		SpreadsheetURL: url,
		SheetName:      sheet,
		CreatedAt:      now,
		Summary: PreviewSummary{
			FetchedRows: fetched,
			DeleteRows:  len(diff.ToDelete),
			UpdateRows:  len(diff.ToUpdate),
			AddRows:     len(diff.ToAdd),
		},
		Diff:        diff,
		UpdateDiffs: updates,
	}
}
