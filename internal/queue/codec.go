package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ytqueue/internal/job"
)

// record is the persisted and exported shape of an Item.
type record struct {
	ID      string          `json:"id,omitempty"`
	Job     json.RawMessage `json:"job"`
	Status  string          `json:"status"`
	Retries int             `json:"retries"`
	Error   *string         `json:"error,omitempty"`
}

type itemJSON struct {
	ID      string  `json:"id,omitempty"`
	Job     job.Job `json:"job"`
	Status  Status  `json:"status"`
	Retries int     `json:"retries"`
	Error   *string `json:"error,omitempty"`
}

// MarshalJSON encodes the item in the persisted queue shape. The error key is
// only written for failed items.
func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{ID: i.ID, Job: i.Job, Status: i.Status, Retries: i.Retries}
	if i.Status == StatusFailed {
		msg := i.Error
		out.Error = &msg
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates one persisted item.
func (i *Item) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	item, err := rec.toItem()
	if err != nil {
		return err
	}
	*i = item
	return nil
}

func (r record) toItem() (Item, error) {
	if len(bytes.TrimSpace(r.Job)) == 0 {
		return Item{}, fmt.Errorf("missing job")
	}
	var j job.Job
	if err := json.Unmarshal(r.Job, &j); err != nil {
		return Item{}, err
	}
	if err := j.Validate(); err != nil {
		return Item{}, err
	}
	status, ok := ParseStatus(r.Status)
	if !ok {
		return Item{}, fmt.Errorf("unknown status %q", r.Status)
	}
	if r.Retries < 0 {
		return Item{}, fmt.Errorf("negative retries %d", r.Retries)
	}
	item := Item{
		ID:      strings.TrimSpace(r.ID),
		Job:     j,
		Status:  status,
		Retries: r.Retries,
	}
	if status == StatusFailed && r.Error != nil {
		item.Error = *r.Error
	}
	return item, nil
}

// decodeItems parses a queue document. An empty document is an empty queue.
func decodeItems(data []byte) ([]Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Item{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	items := make([]Item, 0, len(raw))
	for idx, entry := range raw {
		var item Item
		if err := json.Unmarshal(entry, &item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrParse, idx, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	return append(data, '\n'), nil
}

// ensureIDs assigns ids to items that were persisted without one and
// replaces duplicates so every id is unique.
func ensureIDs(items []Item) bool {
	changed := false
	seen := make(map[string]struct{}, len(items))
	for idx := range items {
		if _, dup := seen[items[idx].ID]; items[idx].ID == "" || dup {
			items[idx].ID = uuid.NewString()
			changed = true
		}
		seen[items[idx].ID] = struct{}{}
	}
	return changed
}
