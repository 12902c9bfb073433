package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/relay"
)

// liveness is the body served to plain HTTP requests.
const liveness = "WebSocket server running\n"

// RootHandler upgrades WebSocket handshakes on any path and answers every
// other request with the liveness text.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// WebSocketHandler upgrades the request, registers the new connection with
// the relay and starts its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := newClient(conn, relay.Identity(conn.RemoteAddr()), s.relay, s.settings(), s.logger)
	s.logger.Info("new connection", "conn", client.ID())

	if !s.hub.track() {
		s.reject(client, "server shutting down")
		return
	}
	if err := s.relay.OnConnected(client); err != nil {
		s.hub.untrack()
		s.reject(client, "registration failed")
		return
	}

	s.hub.run(client.writePump)
	s.hub.run(client.readPump)
}

// reject closes a connection that was upgraded but never registered.
func (s *Server) reject(c *Client, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		s.logger.Debug("writing close frame", "conn", c.ID(), "err", err)
	}
	c.Close()
	c.closeConnection()
}

// HealthHandler provides a simple liveness endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, liveness)
}

// TestPageHandler serves an HTML page for trying the relay from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>WebSocket Relay Test</title>
    <style>
        body { font-family: sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        .sent { color: blue; }
        .recv { color: green; }
        .info { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <h1>WebSocket Relay Test</h1>
    <div id="status" class="info">Disconnected</div>
    <input type="text" id="input" placeholder="Type a message..." disabled>
    <button id="send" onclick="send()" disabled>Send</button>
    <button id="toggle" onclick="toggle()">Connect</button>
    <div id="log"></div>
    <script>
        let ws = null;
        const log = document.getElementById('log');
        const input = document.getElementById('input');

        function add(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            log.appendChild(el);
            log.scrollTop = log.scrollHeight;
        }

        function setConnected(on) {
            document.getElementById('status').textContent = on ? 'Connected' : 'Disconnected';
            document.getElementById('toggle').textContent = on ? 'Disconnect' : 'Connect';
            input.disabled = !on;
            document.getElementById('send').disabled = !on;
        }

        function toggle() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => { add('Connected', 'info'); setConnected(true); };
            ws.onmessage = (e) => add(e.data, 'recv');
            ws.onclose = () => { add('Connection closed', 'info'); setConnected(false); ws = null; };
            ws.onerror = () => add('Connection error', 'info');
        }

        function send() {
            if (input.value && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(input.value);
                add(input.value, 'sent');
                input.value = '';
            }
        }

        input.addEventListener('keypress', (e) => { if (e.key === 'Enter') send(); });
    </script>
</body>
</html>`
