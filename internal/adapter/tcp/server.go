// Package tcp is the binary command-dispatch adapter: a thin reference
// caller exercising Registry.Cache and Registry.Engine over the wire, in
// the teacher's plain net.Listener style rather than an event-loop
// framework.
package tcp

import (
	"encoding/binary"
	"log"
	"net"
	"strings"

	"github.com/pomaicache/keycache/internal/registry"
)

// Server accepts connections and dispatches framed packets against the
// namespace registry. It never touches cache.KeyCache internals
// directly — every command goes through Registry.Cache(ns) or
// Registry.Engine(ns).
type Server struct {
	registry *registry.Registry
}

// New creates a Server bound to reg.
func New(reg *registry.Registry) *Server {
	return &Server{registry: reg}
}

// ListenAndServe listens on addr and serves connections. It returns only
// if the listen itself fails; an Accept error is skipped and the loop
// keeps accepting.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer listener.Close()
	log.Printf("[tcp] listening on %s", addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := ReadPacket(conn)
		if err != nil {
			return
		}

		status, value, err := s.dispatch(req)
		if err != nil {
			status = StatusError
			value = []byte(err.Error())
		}

		if err := WritePacket(conn, status, "", "", value); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Packet) (uint8, []byte, error) {
	eng, err := s.registry.Engine(req.NS)
	if err != nil {
		return StatusError, nil, err
	}

	switch req.Opcode {
	case OpSet:
		if err := eng.Set(req.Key, req.Value); err != nil {
			return StatusError, nil, err
		}
		return StatusOK, nil, nil

	case OpDel:
		if err := eng.Del(req.Key); err != nil {
			return StatusError, nil, err
		}
		return StatusOK, nil, nil

	case OpExpire:
		if len(req.Value) < 8 {
			return StatusError, nil, errShortExpirePayload
		}
		deadlineMs := int64(binary.BigEndian.Uint64(req.Value[:8]))
		if err := eng.Expire(req.Key, deadlineMs); err != nil {
			return StatusError, nil, err
		}
		return StatusOK, nil, nil

	case OpPersist:
		if err := eng.Persist(req.Key); err != nil {
			return StatusError, nil, err
		}
		return StatusOK, nil, nil

	case OpFlush:
		if err := eng.Flush(); err != nil {
			return StatusError, nil, err
		}
		return StatusOK, nil, nil

	case OpKeys:
		matches := eng.Cache().Get(req.Key)
		return StatusOK, []byte(strings.Join(matches, "\n")), nil

	default:
		return StatusError, nil, errUnknownOpcode
	}
}
