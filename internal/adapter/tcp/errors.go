package tcp

import "errors"

var (
	errShortExpirePayload = errors.New("tcp: expire payload must carry an 8-byte deadline")
	errUnknownOpcode      = errors.New("tcp: unknown opcode")
)
