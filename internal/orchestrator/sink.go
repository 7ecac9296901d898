package orchestrator

import (
	"fmt"

	"floatingtemple/internal/directory"
	"floatingtemple/internal/proto"
)

// directorySink implements engine.OutboundSink atop the peer directory:
// addressing a peer means looking up its live Connection and framing a
// TransactionRecord as an Envelope.
type directorySink struct {
	dir *directory.Directory
}

func (s *directorySink) Send(to directory.PeerID, rec *proto.TransactionRecord) error {
	conn, ok := s.dir.Lookup(to)
	if !ok {
		return fmt.Errorf("orchestrator: peer %s is not connected", to)
	}
	env := proto.Envelope{Kind: proto.KindTransactionRecord, Body: rec.Encode()}
	return conn.Send(env.Encode())
}
