package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

// streamInfo forwards engine progress to a websocket writer. Lines are
// dropped while the client is not keeping up.
type streamInfo struct {
	send chan []byte
}

func (s streamInfo) Info(text string) {
	s.sendJSON(wsMessage{Type: "info", Payload: mustMarshal(map[string]string{"text": text})})
}

func (s streamInfo) Score(centipawns int) {
	s.sendJSON(wsMessage{Type: "score", Payload: mustMarshal(map[string]int{"cp": centipawns})})
}

func (s streamInfo) sendJSON(msg wsMessage) {
	select {
	case s.send <- mustMarshal(msg):
	default:
	}
}

// handleSearchWS runs a search of ?fen= for ?think_ms= and streams its info
// lines, then the final move, over a websocket. Closing the socket stops the
// search.
func (s *Server) handleSearchWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := parseBoard(q.Get("fen"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ms := -1
	if v := q.Get("think_ms"); v != "" {
		if ms, err = strconv.Atoi(v); err != nil || ms < 0 {
			writeError(w, http.StatusBadRequest, "invalid think_ms")
			return
		}
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan []byte, 64)
	gone := make(chan struct{})
	calc := s.newEngine(streamInfo{send: send}).BestMove(b, s.thinkTime(ms))

	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				calc.Stop()
				return
			}
		}
	}()

	go func() {
		<-calc.Done()
		final := mustMarshal(wsMessage{Type: "bestmove", Payload: mustMarshal(newBestMoveResponse(b.FEN(), calc))})
		select {
		case send <- final:
		case <-gone:
		}
		close(send)
	}()

	if err := writeWSWithHeartbeat(conn, send); err != nil {
		calc.Stop()
		s.log.Debug().Err(err).Msg("websocket write failed")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
