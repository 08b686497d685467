// Package bittrex decodes Bittrex's SignalR Hub protocol: a negotiate
// handshake over HTTP followed by a WebSocket carrying {H,M,A,I} hub
// invocation envelopes whose payloads are base64(deflate(JSON)).
// No SignalR client exists anywhere in the example pack, so this
// envelope and handshake are hand-rolled on the standard library's
// net/http, compress/flate and encoding/base64 — documented in
// DESIGN.md as the one justified stdlib-only piece of the streaming
// path.
package bittrex

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	NegotiateURL = "https://socket.bittrex.com/signalr/negotiate"
	StartURL     = "https://socket.bittrex.com/signalr/start"
	ConnectURL   = "wss://socket.bittrex.com/signalr/connect"
	hubName      = "c2"
)

// HubMessage is the SignalR Hub RPC envelope.
type HubMessage struct {
	H string          `json:"H"`
	M string          `json:"M"`
	A []interface{}   `json:"A"`
	I string          `json:"I"`
}

// InboundMessage is a loosely-typed inbound frame: either a hub
// invocation (method M with argument array A) carried under "M" as an
// array of calls, per the SignalR wire format.
type InboundMessage struct {
	C string     `json:"C,omitempty"`
	M []HubCall  `json:"M,omitempty"`
}

type HubCall struct {
	H string            `json:"H"`
	M string            `json:"M"`
	A []json.RawMessage `json:"A"`
}

type negotiateResponse struct {
	ConnectionToken string `json:"ConnectionToken"`
	ConnectionID    string `json:"ConnectionId"`
}

// Negotiate performs the SignalR negotiate + start handshake and returns
// the fully-qualified WebSocket connect URL.
func Negotiate(client *http.Client) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	connectionData := connectionDataParam()

	negotiateReq, err := http.NewRequest(http.MethodGet, NegotiateURL, nil)
	if err != nil {
		return "", err
	}
	q := negotiateReq.URL.Query()
	q.Set("clientProtocol", "1.5")
	q.Set("connectionData", connectionData)
	negotiateReq.URL.RawQuery = q.Encode()

	resp, err := client.Do(negotiateReq)
	if err != nil {
		return "", fmt.Errorf("bittrex negotiate: %w", err)
	}
	defer resp.Body.Close()

	var nr negotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return "", fmt.Errorf("bittrex negotiate decode: %w", err)
	}

	startReq, err := http.NewRequest(http.MethodGet, StartURL, nil)
	if err != nil {
		return "", err
	}
	sq := startReq.URL.Query()
	sq.Set("transport", "webSockets")
	sq.Set("clientProtocol", "1.5")
	sq.Set("connectionToken", nr.ConnectionToken)
	sq.Set("connectionData", connectionData)
	startReq.URL.RawQuery = sq.Encode()

	startResp, err := client.Do(startReq)
	if err != nil {
		return "", fmt.Errorf("bittrex start: %w", err)
	}
	defer startResp.Body.Close()
	io.Copy(io.Discard, startResp.Body)

	connectQuery := url.Values{}
	connectQuery.Set("transport", "webSockets")
	connectQuery.Set("clientProtocol", "1.5")
	connectQuery.Set("connectionToken", nr.ConnectionToken)
	connectQuery.Set("connectionData", connectionData)

	return ConnectURL + "?" + connectQuery.Encode(), nil
}

func connectionDataParam() string {
	data, _ := json.Marshal([]map[string]string{{"name": hubName}})
	return string(data)
}

// DecodePayload reverses the wire encoding: base64 -> raw DEFLATE -> the
// JSON payload bytes.
func DecodePayload(b64 string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("bittrex: base64 decode: %w", err)
	}
	reader := flate.NewReader(bytes.NewReader(compressed))
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("bittrex: inflate: %w", err)
	}
	return raw, nil
}
