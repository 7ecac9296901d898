// Package proto implements the fixed-layout binary message schema
// carried inside every framed payload (spec §6): Hello,
// TransactionRecord, ObjectRequest, ObjectResponse, and Bye, encoded
// with encoding/binary rather than a reflection-based codec (spec §6,
// "declared byte order ... in the structured payload schema").
package proto

import (
	"encoding/binary"
	"errors"

	"floatingtemple/internal/directory"
	"floatingtemple/internal/txid"
)

// Kind tags the message carried in an Envelope's Body.
type Kind byte

const (
	KindHello Kind = iota + 1
	KindTransactionRecord
	KindObjectRequest
	KindObjectResponse
	KindBye
)

// ErrMalformed is returned by any decode function on truncated or
// invalid input — a protocol violation, fatal per spec §7.
var ErrMalformed = errors.New("proto: malformed message")

// Envelope is the outermost wire shape: one byte of kind tag, followed
// by a kind-specific body. This is what gets passed to
// wire.EncodeFrame/ParseFrame as the frame payload.
type Envelope struct {
	Kind Kind
	Body []byte
}

// Encode renders e as bytes suitable for wire.EncodeFrame.
func (e Envelope) Encode() []byte {
	out := make([]byte, 1+len(e.Body))
	out[0] = byte(e.Kind)
	copy(out[1:], e.Body)
	return out
}

// DecodeEnvelope parses a frame payload produced by Encode.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) < 1 {
		return Envelope{}, ErrMalformed
	}
	return Envelope{Kind: Kind(b[0]), Body: b[1:]}, nil
}

// putPeerID writes a directory.PeerID as two big-endian 64-bit words,
// per spec §6 "two 64-bit big-endian words" for every 128-bit id.
func putPeerID(dst []byte, id directory.PeerID) {
	hi, lo := id.Uint64Halves()
	binary.BigEndian.PutUint64(dst[0:8], hi)
	binary.BigEndian.PutUint64(dst[8:16], lo)
}

func getPeerID(src []byte) directory.PeerID {
	hi := binary.BigEndian.Uint64(src[0:8])
	lo := binary.BigEndian.Uint64(src[8:16])
	return directory.PeerIDFromHalves(hi, lo)
}

// putTxID writes a txid.ID as three big-endian 64-bit words.
func putTxID(dst []byte, id txid.ID) {
	binary.BigEndian.PutUint64(dst[0:8], id.A)
	binary.BigEndian.PutUint64(dst[8:16], id.B)
	binary.BigEndian.PutUint64(dst[16:24], id.C)
}

func getTxID(src []byte) txid.ID {
	return txid.ID{
		A: binary.BigEndian.Uint64(src[0:8]),
		B: binary.BigEndian.Uint64(src[8:16]),
		C: binary.BigEndian.Uint64(src[16:24]),
	}
}

// putString writes a length-prefixed (uint32 big-endian) string.
func putString(dst []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

func getString(src []byte) (string, []byte, error) {
	if len(src) < 4 {
		return "", nil, ErrMalformed
	}
	n := binary.BigEndian.Uint32(src[:4])
	src = src[4:]
	if uint32(len(src)) < n {
		return "", nil, ErrMalformed
	}
	return string(src[:n]), src[n:], nil
}

// putBytes writes a length-prefixed (uint32 big-endian) byte slice.
func putBytes(dst []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, b...)
}

func getBytes(src []byte) ([]byte, []byte, error) {
	if len(src) < 4 {
		return nil, nil, ErrMalformed
	}
	n := binary.BigEndian.Uint32(src[:4])
	src = src[4:]
	if uint32(len(src)) < n {
		return nil, nil, ErrMalformed
	}
	out := make([]byte, n)
	copy(out, src[:n])
	return out, src[n:], nil
}
