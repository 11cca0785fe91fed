package models

import "testing"

func TestNormalizeShapesPayload(t *testing.T) {
	p := &PopularTimes{
		Days: []DayPopularity{
			{Name: "Tuesday", Data: []int{150, -3, 40}},
			{Name: "Monday", Data: make([]int, 30)},
		},
	}

	p.Normalize()

	if !p.Complete() {
		t.Fatalf("expected complete payload after normalize, got %+v", p.Days)
	}
	if p.Days[0].Name != "Monday" || p.Days[6].Name != "Sunday" {
		t.Errorf("unexpected day order: %s..%s", p.Days[0].Name, p.Days[6].Name)
	}
	tue := p.Days[1].Data
	if tue[0] != 100 || tue[1] != 0 || tue[2] != 40 || tue[3] != 0 {
		t.Errorf("expected clamped and padded tuesday, got %v", tue[:4])
	}
}

func TestNormalizeUnnamedDaysByPosition(t *testing.T) {
	p := &PopularTimes{Days: []DayPopularity{{Data: []int{7}}}}

	p.Normalize()

	if p.Days[0].Data[0] != 7 {
		t.Errorf("expected positional monday value 7, got %d", p.Days[0].Data[0])
	}
}

func TestCompleteRejectsBadShapes(t *testing.T) {
	var nilPayload *PopularTimes
	if nilPayload.Complete() {
		t.Error("nil payload must not be complete")
	}

	p := &PopularTimes{Days: make([]DayPopularity, 7)}
	if p.Complete() {
		t.Error("days without hours must not be complete")
	}
}

func TestBatchReportRecord(t *testing.T) {
	r := &BatchReport{}
	r.Record(RowResult{State: StateDone})
	r.Record(RowResult{State: StateDone, Synthetic: true})
	r.Record(RowResult{State: StateSkipped})
	r.Record(RowResult{State: StateFailed})

	if r.Real != 1 || r.Synthetic != 1 || r.Skipped != 1 || r.Failed != 1 {
		t.Errorf("unexpected counters %+v", r)
	}
	if len(r.Rows) != 4 {
		t.Errorf("expected 4 rows, got %d", len(r.Rows))
	}
}
