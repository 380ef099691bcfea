package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestServerMessage_WinnerAlwaysCarriesLines(t *testing.T) {
	payload, err := json.Marshal(ServerMessage{Type: "winner", Player: "A", Lines: []string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"lines":[]`) {
		t.Fatalf("winner with no completed lines must still send an array: %s", payload)
	}
}

func TestServerMessage_LinesAbsentWhenUnset(t *testing.T) {
	payload, err := json.Marshal(ServerMessage{Type: "players", Players: []string{"A"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "lines") {
		t.Fatalf("non-winner message grew a lines field: %s", payload)
	}
}
