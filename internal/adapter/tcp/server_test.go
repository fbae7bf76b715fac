package tcp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/pomaicache/keycache/internal/registry"
)

func startTestServer(t *testing.T) (addr string, reg *registry.Registry) {
	t.Helper()
	reg = registry.New("")
	srv := New(reg)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(conn)
		}
	}()
	t.Cleanup(func() { listener.Close() })
	return listener.Addr().String(), reg
}

func roundTrip(t *testing.T, addr string, op uint8, ns, key string, value []byte) Packet {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := WritePacket(conn, op, ns, key, value); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	resp, err := ReadPacket(conn)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	return resp
}

func TestSetThenKeysRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)

	if resp := roundTrip(t, addr, OpSet, "db0", "alpha", []byte("v1")); resp.Opcode != StatusOK {
		t.Fatalf("SET status = %d, body %q", resp.Opcode, resp.Value)
	}
	resp := roundTrip(t, addr, OpKeys, "db0", "*", nil)
	if resp.Opcode != StatusOK {
		t.Fatalf("KEYS status = %d", resp.Opcode)
	}
	if string(resp.Value) != "alpha" {
		t.Errorf("KEYS value = %q, want %q", resp.Value, "alpha")
	}
}

func TestDelRemovesKey(t *testing.T) {
	addr, _ := startTestServer(t)

	roundTrip(t, addr, OpSet, "db0", "gone", []byte("v"))
	roundTrip(t, addr, OpDel, "db0", "gone", nil)
	resp := roundTrip(t, addr, OpKeys, "db0", "*", nil)
	if len(resp.Value) != 0 {
		t.Errorf("expected no keys after DEL, got %q", resp.Value)
	}
}

func TestExpireWithShortPayloadErrors(t *testing.T) {
	addr, _ := startTestServer(t)

	roundTrip(t, addr, OpSet, "db0", "k", []byte("v"))
	resp := roundTrip(t, addr, OpExpire, "db0", "k", []byte{1, 2, 3})
	if resp.Opcode != StatusError {
		t.Errorf("expected error status for short expire payload, got %d", resp.Opcode)
	}
}

func TestExpireThenPersist(t *testing.T) {
	addr, reg := startTestServer(t)

	roundTrip(t, addr, OpSet, "db0", "k", []byte("v"))

	deadline := make([]byte, 8)
	binary.BigEndian.PutUint64(deadline, uint64(time.Now().Add(time.Hour).UnixMilli()))
	if resp := roundTrip(t, addr, OpExpire, "db0", "k", deadline); resp.Opcode != StatusOK {
		t.Fatalf("EXPIRE status = %d", resp.Opcode)
	}

	if resp := roundTrip(t, addr, OpPersist, "db0", "k", nil); resp.Opcode != StatusOK {
		t.Fatalf("PERSIST status = %d", resp.Opcode)
	}

	eng, err := reg.Engine("db0")
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if !eng.Exists("k") {
		t.Errorf("expected k to still exist after PERSIST")
	}
}

func TestFlushClearsNamespace(t *testing.T) {
	addr, _ := startTestServer(t)

	roundTrip(t, addr, OpSet, "db0", "a", []byte("1"))
	roundTrip(t, addr, OpSet, "db0", "b", []byte("2"))
	if resp := roundTrip(t, addr, OpFlush, "db0", "", nil); resp.Opcode != StatusOK {
		t.Fatalf("FLUSH status = %d", resp.Opcode)
	}
	resp := roundTrip(t, addr, OpKeys, "db0", "*", nil)
	if len(resp.Value) != 0 {
		t.Errorf("expected empty namespace after FLUSH, got %q", resp.Value)
	}
}

func TestNamespacesAreIsolatedOverTheWire(t *testing.T) {
	addr, _ := startTestServer(t)

	roundTrip(t, addr, OpSet, "db0", "only-here", []byte("v"))
	resp := roundTrip(t, addr, OpKeys, "db1", "*", nil)
	if len(resp.Value) != 0 {
		t.Errorf("expected db1 to be empty, got %q", resp.Value)
	}
}
