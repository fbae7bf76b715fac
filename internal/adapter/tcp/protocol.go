package tcp

import (
	"encoding/binary"
	"errors"
	"io"
)

// Opcodes cover every row of the command table: a setter opcode stands
// in for SET/HSET/LPUSH/SADD/ZADD/PFADD (they share the same cache
// effect), DEL, a single absolute-deadline opcode standing in for
// EXPIRE/PEXPIRE/EXPIREAT/PEXPIREAT, PERSIST, a single opcode standing
// in for FLUSHDB/FLUSHALL, and KEYS.
const (
	MagicByte = 'P'

	OpSet     = 1
	OpDel     = 2
	OpExpire  = 3
	OpPersist = 4
	OpFlush   = 5
	OpKeys    = 6
)

// Status codes reuse the opcode byte on the response packet.
const (
	StatusOK    = 0
	StatusError = 1
)

// HeaderSize is the fixed wire header: magic(1) op(1) nsLen(2) keyLen(2)
// valLen(4). The namespace field extends the teacher's single-keyspace
// framing: every command here names the namespace it targets, the wire
// equivalent of Redis SELECT <n>.
const HeaderSize = 10

// Packet is one framed request or response.
type Packet struct {
	Opcode uint8
	NS     string
	Key    string
	Value  []byte
}

// WritePacket encodes and writes a packet.
func WritePacket(w io.Writer, op uint8, ns, key string, value []byte) error {
	if len(ns) > 65535 {
		return errors.New("tcp: namespace too long")
	}
	if len(key) > 65535 {
		return errors.New("tcp: key too long")
	}

	buf := make([]byte, HeaderSize)
	buf[0] = MagicByte
	buf[1] = op
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(ns)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(key)))
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(value)))

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := w.Write([]byte(ns)); err != nil {
		return err
	}
	if _, err := w.Write([]byte(key)); err != nil {
		return err
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

// ReadPacket reads and decodes one packet.
func ReadPacket(r io.Reader) (Packet, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Packet{}, err
	}
	if header[0] != MagicByte {
		return Packet{}, errors.New("tcp: invalid magic byte")
	}

	op := header[1]
	nsLen := binary.BigEndian.Uint16(header[2:4])
	keyLen := binary.BigEndian.Uint16(header[4:6])
	valLen := binary.BigEndian.Uint32(header[6:10])

	body := make([]byte, int(nsLen)+int(keyLen)+int(valLen))
	if _, err := io.ReadFull(r, body); err != nil {
		return Packet{}, err
	}

	ns := string(body[:nsLen])
	key := string(body[nsLen : nsLen+keyLen])
	value := body[nsLen+keyLen:]

	return Packet{Opcode: op, NS: ns, Key: key, Value: value}, nil
}
