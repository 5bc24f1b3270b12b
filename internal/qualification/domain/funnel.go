package domain

// FunnelStage groups statuses for reporting. It is never authoritative state.
type FunnelStage string

const (
	FunnelReceived       FunnelStage = "received"
	FunnelInConversation FunnelStage = "in_conversation"
	FunnelQualified      FunnelStage = "qualified"
	FunnelDelivered      FunnelStage = "delivered"
	FunnelCooling        FunnelStage = "cooling"
	FunnelEscalated      FunnelStage = "escalated"
	FunnelNotQualified   FunnelStage = "not_qualified"
)

// FunnelStages lists stages in display order with their member statuses.
var FunnelStages = []struct {
	Stage    FunnelStage
	Statuses []Status
}{
	{FunnelReceived, []Status{StatusPendingMapping, StatusToBeContacted}},
	{FunnelInConversation, []Status{StatusContacted, StatusEngaged, StatusQualifying}},
	{FunnelQualified, []Status{StatusScored, StatusLeadReady}},
	{FunnelDelivered, []Status{StatusSentToDeveloper}},
	{FunnelCooling, []Status{StatusCooling, StatusReactivation}},
	{FunnelEscalated, []Status{StatusHumanHandoff}},
	{FunnelNotQualified, []Status{StatusDisqualified, StatusStopped}},
}

// StageOf returns the funnel stage containing s.
func StageOf(s Status) (FunnelStage, bool) {
	for _, group := range FunnelStages {
		for _, member := range group.Statuses {
			if member == s {
				return group.Stage, true
			}
		}
	}
	return "", false
}

// FunnelStageCount is one row of a funnel report.
type FunnelStageCount struct {
	Stage    FunnelStage    `json:"stage"`
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"byStatus"`
}

// AggregateFunnel folds per-status counts into funnel stages.
func AggregateFunnel(counts map[Status]int) []FunnelStageCount {
	out := make([]FunnelStageCount, 0, len(FunnelStages))
	for _, group := range FunnelStages {
		row := FunnelStageCount{Stage: group.Stage, ByStatus: make(map[Status]int, len(group.Statuses))}
		for _, s := range group.Statuses {
			row.ByStatus[s] = counts[s]
			row.Total += counts[s]
		}
		out = append(out, row)
	}
	return out
}
