package domain

import "testing"

func TestEveryStatusBelongsToExactlyOneStage(t *testing.T) {
	for _, s := range AllStatuses {
		hits := 0
		for _, group := range FunnelStages {
			for _, member := range group.Statuses {
				if member == s {
					hits++
				}
			}
		}
		if hits != 1 {
			t.Fatalf("status %s appears in %d stages", s, hits)
		}
	}
}

func TestAggregateFunnel(t *testing.T) {
	rows := AggregateFunnel(map[Status]int{
		StatusPendingMapping: 2,
		StatusToBeContacted:  3,
		StatusScored:         1,
		StatusLeadReady:      4,
		StatusStopped:        1,
	})

	totals := map[FunnelStage]int{}
	for _, row := range rows {
		totals[row.Stage] = row.Total
	}
	if totals[FunnelReceived] != 5 || totals[FunnelQualified] != 5 || totals[FunnelNotQualified] != 1 {
		t.Fatalf("unexpected funnel totals: %v", totals)
	}
	if rows[0].Stage != FunnelReceived {
		t.Fatalf("expected stages in display order")
	}
}
