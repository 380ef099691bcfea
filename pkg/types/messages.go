package types

// Client -> Server
// join:   player, room   (binds this connection's identity)
// start:  numPlayers
// call:   number
// winner: player, lines
// reset:  {}
// chat:   player, message
//
// Server -> Client
// players: players (full membership snapshot, join order)
// start:   firstPlayer
// call:    number, caller, nextPlayer
// winner:  player, lines
// reset:   {}
// chat:    player, message
// error:   message

type ClientMessage struct {
	Type       string   `json:"type"`
	Player     string   `json:"player,omitempty"`
	Room       string   `json:"room,omitempty"`
	NumPlayers int      `json:"numPlayers,omitempty"`
	Number     int      `json:"number,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	Message    string   `json:"message,omitempty"`
}

type ServerMessage struct {
	Type        string   `json:"type"`
	Players     []string `json:"players,omitempty"`
	FirstPlayer string   `json:"firstPlayer,omitempty"`
	Number      int      `json:"number,omitempty"`
	Caller      string   `json:"caller,omitempty"`
	NextPlayer  string   `json:"nextPlayer,omitempty"`
	Player      string   `json:"player,omitempty"`
	Lines       []string `json:"lines,omitzero"` // winner always carries an array, possibly empty
	Message     string   `json:"message,omitempty"`
}
