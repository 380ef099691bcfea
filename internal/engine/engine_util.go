package engine

func NewEmptyState() State {
	return State{
		Players:     []string{},
		CurrentTurn: "",
		Started:     false,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
