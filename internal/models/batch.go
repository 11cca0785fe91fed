package models

import "time"

type RowState string

const (
	StatePending          RowState = "PENDING"
	StateResolving        RowState = "RESOLVING"
	StateFetching         RowState = "FETCHING"
	StateWritingReal      RowState = "WRITING_REAL"
	StateWritingSynthetic RowState = "WRITING_SYNTHETIC"
	StateDone             RowState = "DONE"
	StateSkipped          RowState = "SKIPPED"
	StateFailed           RowState = "FAILED"
)

type BatchOptions struct {
	Limit        int  `json:"limit"`
	UsePlaceIDs  bool `json:"use_place_ids"`
	UseEmptyData bool `json:"use_empty_data"`
	Mock         bool `json:"mock"`
}

// DefaultBatchOptions mirrors the CLI defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{UsePlaceIDs: true, UseEmptyData: true}
}

type RowResult struct {
	CafeID    string   `json:"cafe_id"`
	Name      string   `json:"name"`
	PlaceID   string   `json:"place_id,omitempty"`
	State     RowState `json:"state"`
	Synthetic bool     `json:"synthetic"`
	Error     string   `json:"error,omitempty"`
}

type BatchReport struct {
	RunID      string       `json:"run_id"`
	Options    BatchOptions `json:"options"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Total      int          `json:"total"`
	Real       int          `json:"real"`
	Synthetic  int          `json:"synthetic"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Rows       []RowResult  `json:"rows"`
}

func (r *BatchReport) Record(row RowResult) {
	r.Rows = append(r.Rows, row)
	switch row.State {
	case StateDone:
		if row.Synthetic {
			r.Synthetic++
		} else {
			r.Real++
		}
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}
}
