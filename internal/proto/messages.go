package proto

import (
	"encoding/binary"

	"floatingtemple/internal/directory"
	"floatingtemple/internal/txid"
)

// Hello is the first message on a new connection: each side sends one,
// carrying its peer identity and its own listen address (spec §6).
type Hello struct {
	PeerID  directory.PeerID
	Address string
}

func (h Hello) Encode() []byte {
	buf := make([]byte, 0, 16+4+len(h.Address))
	var idBuf [16]byte
	putPeerID(idBuf[:], h.PeerID)
	buf = append(buf, idBuf[:]...)
	buf = putString(buf, h.Address)
	return buf
}

func DecodeHello(b []byte) (Hello, error) {
	if len(b) < 16 {
		return Hello{}, ErrMalformed
	}
	id := getPeerID(b[:16])
	addr, _, err := getString(b[16:])
	if err != nil {
		return Hello{}, err
	}
	return Hello{PeerID: id, Address: addr}, nil
}

// Bye is a clean shutdown notice.
type Bye struct {
	PeerID directory.PeerID
}

func (b Bye) Encode() []byte {
	buf := make([]byte, 16)
	putPeerID(buf, b.PeerID)
	return buf
}

func DecodeBye(b []byte) (Bye, error) {
	if len(b) < 16 {
		return Bye{}, ErrMalformed
	}
	return Bye{PeerID: getPeerID(b[:16])}, nil
}

// ObjectVersion is one committed snapshot of a shared object as carried
// on the wire: its global identity, the interpreter's serialized bytes,
// and the ordered table of object ids those bytes reference (the
// sending peer's codec.SerializationContext order, spec §4.5).
type ObjectVersion struct {
	ObjectID [16]byte
	Data     []byte
	RefIDs   [][16]byte
}

func (v ObjectVersion) encodeInto(buf []byte) []byte {
	buf = append(buf, v.ObjectID[:]...)
	buf = putBytes(buf, v.Data)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(v.RefIDs)))
	buf = append(buf, countBuf[:]...)
	for _, ref := range v.RefIDs {
		buf = append(buf, ref[:]...)
	}
	return buf
}

func decodeObjectVersion(b []byte) (ObjectVersion, []byte, error) {
	if len(b) < 16 {
		return ObjectVersion{}, nil, ErrMalformed
	}
	var v ObjectVersion
	copy(v.ObjectID[:], b[:16])
	b = b[16:]

	data, rest, err := getBytes(b)
	if err != nil {
		return ObjectVersion{}, nil, err
	}
	v.Data = data
	b = rest

	if len(b) < 4 {
		return ObjectVersion{}, nil, ErrMalformed
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	v.RefIDs = make([][16]byte, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 16 {
			return ObjectVersion{}, nil, ErrMalformed
		}
		copy(v.RefIDs[i][:], b[:16])
		b = b[16:]
	}
	return v, b, nil
}

// TransactionRecord announces a committed transaction and carries every
// affected object's new serialized version (spec §4.7 "On outermost
// commit").
type TransactionRecord struct {
	TID    txid.ID
	PeerID directory.PeerID
	Writes []ObjectVersion
}

func (r TransactionRecord) Encode() []byte {
	buf := make([]byte, 0, 24+16+4)
	var idBuf [24]byte
	putTxID(idBuf[:], r.TID)
	buf = append(buf, idBuf[:]...)
	var peerBuf [16]byte
	putPeerID(peerBuf[:], r.PeerID)
	buf = append(buf, peerBuf[:]...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(r.Writes)))
	buf = append(buf, countBuf[:]...)
	for _, w := range r.Writes {
		buf = w.encodeInto(buf)
	}
	return buf
}

func DecodeTransactionRecord(b []byte) (TransactionRecord, error) {
	if len(b) < 24+16+4 {
		return TransactionRecord{}, ErrMalformed
	}
	tid := getTxID(b[:24])
	b = b[24:]
	peerID := getPeerID(b[:16])
	b = b[16:]

	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]

	writes := make([]ObjectVersion, 0, count)
	for i := uint32(0); i < count; i++ {
		v, rest, err := decodeObjectVersion(b)
		if err != nil {
			return TransactionRecord{}, err
		}
		writes = append(writes, v)
		b = rest
	}
	return TransactionRecord{TID: tid, PeerID: peerID, Writes: writes}, nil
}

// ObjectRequest asks a peer for the current head of a named object.
type ObjectRequest struct {
	ObjectID [16]byte
}

func (r ObjectRequest) Encode() []byte {
	buf := make([]byte, 16)
	copy(buf, r.ObjectID[:])
	return buf
}

func DecodeObjectRequest(b []byte) (ObjectRequest, error) {
	if len(b) < 16 {
		return ObjectRequest{}, ErrMalformed
	}
	var r ObjectRequest
	copy(r.ObjectID[:], b[:16])
	return r, nil
}

// ObjectResponse delivers the requested head, or Found == false if the
// responding peer has never heard of that object id.
type ObjectResponse struct {
	Found   bool
	Version ObjectVersion
}

func (r ObjectResponse) Encode() []byte {
	buf := make([]byte, 0, 1+32)
	if r.Found {
		buf = append(buf, 1)
		buf = r.Version.encodeInto(buf)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func DecodeObjectResponse(b []byte) (ObjectResponse, error) {
	if len(b) < 1 {
		return ObjectResponse{}, ErrMalformed
	}
	if b[0] == 0 {
		return ObjectResponse{Found: false}, nil
	}
	v, _, err := decodeObjectVersion(b[1:])
	if err != nil {
		return ObjectResponse{}, err
	}
	return ObjectResponse{Found: true, Version: v}, nil
}
