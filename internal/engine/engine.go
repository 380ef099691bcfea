package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrGameNotStarted = errors.New("game not started")
var ErrRoomCorrupted = errors.New("room state corrupted")
var ErrWinRejected = errors.New("win claim rejected")
var ErrUnsupportedCommand = errors.New("unsupported command")

type NotYourTurnError struct {
	Turn string
}

func (e *NotYourTurnError) Error() string {
	return fmt.Sprintf("it's %s's turn", e.Turn)
}

type InsufficientPlayersError struct {
	Need int
	Have int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("waiting for %d players, currently %d", e.Need, e.Have)
}

// State is one room's authoritative game state. Players is in join order;
// that order defines the turn rotation. CurrentTurn is empty whenever no
// round is active.
type State struct {
	Players     []string
	CurrentTurn string
	Started     bool
}

type CommandType string

const (
	CmdJoin   CommandType = "Join"
	CmdStart  CommandType = "Start"
	CmdCall   CommandType = "Call"
	CmdWinner CommandType = "Winner"
	CmdReset  CommandType = "Reset"
	CmdLeave  CommandType = "Leave"
)

type Command struct {
	Type       CommandType
	Player     string
	NumPlayers int
	Number     int
	Lines      []string
}

type EventType string

const (
	EvtPlayersUpdated EventType = "PlayersUpdated"
	EvtGameStarted    EventType = "GameStarted"
	EvtNumberCalled   EventType = "NumberCalled"
	EvtWinnerDeclared EventType = "WinnerDeclared"
	EvtGameReset      EventType = "GameReset"
	EvtTurnReassigned EventType = "TurnReassigned"
)

// Audience tells the fan-out layer who receives an event.
type Audience int

const (
	ToAll Audience = iota
	ToOthers // everyone except the participant whose action produced the event
)

type Event struct {
	Type     EventType
	Audience Audience
	Players  []string
	First    string
	Number   int
	Caller   string
	Next     string
	Player   string
	Lines    []string
}

// VerifyWin decides whether a reported win claim is accepted. The default
// trusts the reporting client entirely; substitute a stricter check to
// validate line reports without touching the turn logic.
var VerifyWin = func(player string, lines []string) bool { return true }

// Apply validates cmd against s and returns the events to broadcast plus the
// successor state. It never mutates s; on error the returned state is s
// unchanged and no events are emitted.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdJoin:
		// Re-join under an existing name keeps order and turn state; the
		// caller rebinds the connection handle. Either way the full player
		// list goes out so every client converges on the same view.
		if !slices.Contains(s.Players, cmd.Player) {
			newState.Players = append(slices.Clone(s.Players), cmd.Player)
		}
		events := []Event{
			{Type: EvtPlayersUpdated, Audience: ToAll, Players: slices.Clone(newState.Players)},
		}
		return events, newState, nil

	case CmdStart:
		if len(s.Players) < cmd.NumPlayers {
			return nil, s, &InsufficientPlayersError{Need: cmd.NumPlayers, Have: len(s.Players)}
		}
		if len(s.Players) == 0 {
			// Unreachable while the membership invariant holds; rejected so a
			// bad NumPlayers can never start a game nobody is in.
			return nil, s, ErrRoomCorrupted
		}
		first := s.Players[0]
		newState.Started = true
		newState.CurrentTurn = first
		events := []Event{
			{Type: EvtGameStarted, Audience: ToAll, First: first},
		}
		return events, newState, nil

	case CmdCall:
		if !s.Started {
			return nil, s, ErrGameNotStarted
		}
		if s.CurrentTurn != cmd.Player {
			return nil, s, &NotYourTurnError{Turn: s.CurrentTurn}
		}
		// No duplicate-number check: the caller's client already filters
		// numbers it has seen, and repeats are harmless to turn order.
		next := nextAfter(s.Players, cmd.Player)
		newState.CurrentTurn = next
		events := []Event{
			{Type: EvtNumberCalled, Audience: ToOthers, Number: cmd.Number, Caller: cmd.Player, Next: next},
		}
		return events, newState, nil

	case CmdWinner:
		if !VerifyWin(cmd.Player, cmd.Lines) {
			return nil, s, ErrWinRejected
		}
		// Terminal regardless of prior state, so a late or repeated report
		// is idempotent.
		newState.Started = false
		newState.CurrentTurn = ""
		events := []Event{
			{Type: EvtWinnerDeclared, Audience: ToOthers, Player: cmd.Player, Lines: cmd.Lines},
		}
		return events, newState, nil

	case CmdReset:
		newState.Started = false
		newState.CurrentTurn = ""
		events := []Event{
			{Type: EvtGameReset, Audience: ToOthers},
		}
		return events, newState, nil

	case CmdLeave:
		idx := slices.Index(s.Players, cmd.Player)
		if idx < 0 {
			return nil, s, nil
		}
		newState.Players = slices.Delete(slices.Clone(s.Players), idx, idx+1)
		if len(newState.Players) == 0 {
			// Room is about to be torn down; nobody left to notify.
			return nil, newState, nil
		}
		var events []Event
		if s.Started && s.CurrentTurn == cmd.Player {
			// Turn falls back to the first remaining player by join order,
			// not the departed player's successor.
			newState.CurrentTurn = newState.Players[0]
			events = append(events, Event{
				Type:     EvtTurnReassigned,
				Audience: ToAll,
				Player:   cmd.Player,
				Next:     newState.CurrentTurn,
			})
		}
		events = append(events, Event{
			Type: EvtPlayersUpdated, Audience: ToAll, Players: slices.Clone(newState.Players),
		})
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// nextAfter returns the cyclic successor of player in the rotation.
func nextAfter(players []string, player string) string {
	i := slices.Index(players, player)
	return players[(i+1)%len(players)]
}
