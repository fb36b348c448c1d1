package vosk

import (
	"encoding/json"
	log "log/slog"
	"time"

	ws "github.com/gorilla/websocket"
)

type webSocket struct {
	conn *ws.Conn
	url  string
}

func dial(url string, timeout time.Duration) (*webSocket, error) {
	log.Debug("Dialing vosk server", "url", url)

	d := ws.Dialer{HandshakeTimeout: timeout}
	conn, _, err := d.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &webSocket{conn: conn, url: url}, nil
}

func (web *webSocket) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	log.Debug("Write ws", "msg", string(payload))
	return web.conn.WriteMessage(ws.TextMessage, payload)
}

func (web *webSocket) writeAudio(chunk []byte) error {
	return web.conn.WriteMessage(ws.BinaryMessage, chunk)
}

type incomeKind uint

const (
	connClosed incomeKind = iota
	readFailure
	readOK
)

type income struct {
	kind incomeKind
	msg  []byte
	err  error
}

func (web *webSocket) read() income {
	_, msg, err := web.conn.ReadMessage()
	if err != nil {
		if isClosed(err) {
			return income{kind: connClosed, err: err}
		}
		return income{kind: readFailure, err: err}
	}

	log.Debug("Read ws", "msg", string(msg))
	return income{kind: readOK, msg: msg}
}

func (web *webSocket) close() error {
	return web.conn.Close()
}

// isClosed reports a close handshake. A dropped connection (1006) is a
// read failure.
func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway)
}
