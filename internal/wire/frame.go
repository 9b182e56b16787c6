package wire

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
)

// gRPC length-prefixed message framing: one compression byte, a big-endian
// uint32 payload length, then the payload.
const frameHeaderLen = 5

const (
	compressionIdentity = 0
	compressionGzip     = 1
)

// Frame wraps payload in a single identity-compressed gRPC frame.
func Frame(payload []byte) []byte {
	out := make([]byte, frameHeaderLen, frameHeaderLen+len(payload))
	out[0] = compressionIdentity
	binary.BigEndian.PutUint32(out[1:frameHeaderLen], uint32(len(payload)))
	return append(out, payload...)
}

// Unframe splits a response body into its concatenated gRPC frame
// payloads. Gzip-compressed frames are decompressed; any other
// compression byte is treated as identity. A truncated tail, a declared
// length past the end of the buffer, or an undecodable gzip body ends the
// walk silently with the frames collected so far.
func Unframe(body []byte) [][]byte {
	var payloads [][]byte
	for len(body) >= frameHeaderLen {
		length := binary.BigEndian.Uint32(body[1:frameHeaderLen])
		rest := body[frameHeaderLen:]
		if uint64(length) > uint64(len(rest)) {
			break
		}
		payload := rest[:length]
		if body[0] == compressionGzip {
			decompressed, err := gunzip(payload)
			if err != nil {
				break
			}
			payload = decompressed
		}
		payloads = append(payloads, payload)
		body = rest[length:]
	}
	return payloads
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
