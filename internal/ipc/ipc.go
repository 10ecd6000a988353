// Package ipc is the local control channel over a unix socket. It carries
// exactly two commands: start and status.
package ipc

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"net"
	"os"
)

const DefaultSocketPath = "/tmp/prometheus.sock"

const (
	CmdStart  = "start"
	CmdStatus = "status"
)

type Request struct {
	Cmd string `json:"cmd"`
}

type Response struct {
	OK      bool   `json:"ok"`
	Started bool   `json:"started"`
	State   string `json:"state,omitempty"`
	Err     string `json:"err,omitempty"`
}

// Controller is the daemon-side surface the socket exposes.
type Controller interface {
	// Start releases the loop; reports false when already started.
	Start() bool
	IsStarted() bool
	// StateString describes the current loop state for status replies.
	StateString() string
}

// Server accepts control connections until Close.
type Server struct {
	ln   net.Listener
	path string
}

func NewServer(path string, ctrl Controller) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	// A stale socket from a crashed run blocks rebinding.
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	s := &Server{ln: ln, path: path}
	go s.serve(ctrl)
	return s, nil
}

func (s *Server) serve(ctrl Controller) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go handleConn(conn, ctrl)
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, ctrl Controller) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Control message decode failed", "err", err)
		return
	}

	var resp Response
	switch req.Cmd {
	case CmdStart:
		ctrl.Start()
		resp = Response{OK: true, Started: true}
	case CmdStatus:
		resp = Response{OK: true, Started: ctrl.IsStarted(), State: ctrl.StateString()}
	default:
		resp = Response{Err: fmt.Sprintf("unknown command %q", req.Cmd)}
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Warn("Control reply failed", "err", err)
	}
}

// Send issues one command to a running daemon and returns its reply.
func Send(path, cmd string) (Response, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(Request{Cmd: cmd}); err != nil {
		return Response{}, fmt.Errorf("send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read reply: %w", err)
	}
	return resp, nil
}
