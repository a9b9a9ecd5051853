package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bridge operations
const (
	OpOpen    = "open"
	OpClose   = "close"
	OpExec    = "exec"
	OpInfo    = "info"
	OpVersion = "version"
)

// Request is one line sent to the bridge host.
type Request struct {
	ID       string `json:"id"`
	Op       string `json:"op"`
	Endpoint string `json:"endpoint,omitempty"`
	Item     string `json:"item,omitempty"`
	Args     []any  `json:"args,omitempty"`
}

// Reply is one line received from the bridge host. Code carries the device
// result; Error is set when the bridge itself could not perform the call.
type Reply struct {
	ID    string `json:"id"`
	Code  int    `json:"code"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Encode returns the request as a single newline-terminated JSON line.
func (r *Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return append(data, '\n'), nil
}

func DecodeReply(line []byte) (*Reply, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("empty reply")
	}

	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if reply.ID == "" {
		return nil, fmt.Errorf("reply without id")
	}
	return &reply, nil
}
