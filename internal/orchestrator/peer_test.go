package orchestrator

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"floatingtemple/internal/bridge"
	"floatingtemple/internal/codec"
	"floatingtemple/internal/config"
	"floatingtemple/internal/engine"
	"floatingtemple/interpreter/toy"
)

type echoInterpreter struct{}

type echoObject struct{ value int64 }

func (o *echoObject) Clone() bridge.LocalObject { return &echoObject{value: o.value} }

func (o *echoObject) Serialize(ctx *codec.SerializationContext) ([]byte, error) {
	return []byte{byte(o.value)}, nil
}

func (o *echoObject) InvokeMethod(method string, params []bridge.Value) (bridge.Value, error) {
	switch method {
	case "increment":
		o.value++
	}
	return bridge.Int64(o.value, 0), nil
}

func (o *echoObject) Dump() string { return "echo" }

func (echoInterpreter) DeserializeObject(data []byte, ctx *codec.DeserializationContext) (bridge.LocalObject, error) {
	return &echoObject{value: int64(data[0])}, nil
}

func (echoInterpreter) Name() string { return "echo" }

func TestStandalonePeerRunProgram(t *testing.T) {
	p := CreateStandalonePeer(echoInterpreter{})
	result, err := p.RunProgram(&echoObject{}, "increment", false)
	if err != nil {
		t.Fatalf("RunProgram failed: %v", err)
	}
	if result.Int64Value != 1 {
		t.Errorf("got %d, want 1", result.Int64Value)
	}
}

func TestNetworkPeersExchangeHelloAndJoinDirectory(t *testing.T) {
	cfgA, err := config.Parse([]string{"--port", "0", "--workers", "2"})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	peerA, err := CreateNetworkPeer(cfgA, echoInterpreter{})
	if err != nil {
		t.Fatalf("CreateNetworkPeer A failed: %v", err)
	}
	defer peerA.Stop(context.Background())

	cfgB, err := config.Parse([]string{"--port", "0", "--workers", "2", "--peers", peerA.listenAddr})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	peerB, err := CreateNetworkPeer(cfgB, echoInterpreter{})
	if err != nil {
		t.Fatalf("CreateNetworkPeer B failed: %v", err)
	}
	defer peerB.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(peerA.dir.Peers()) == 1 && len(peerB.dir.Peers()) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("peers did not register each other via Hello: A has %d, B has %d",
		len(peerA.dir.Peers()), len(peerB.dir.Peers()))
}

func TestStopIsIdempotent(t *testing.T) {
	cfg, err := config.Parse([]string{"--port", "0", "--workers", "1"})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	p, err := CreateNetworkPeer(cfg, echoInterpreter{})
	if err != nil {
		t.Fatalf("CreateNetworkPeer failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

// TestSequentialTransactionsPropagateAcrossPeers drives a sequence of
// writes to a single shared variable on peer A, fetching it from peer B
// after each one, checking that the peer that didn't originate the writes
// sees the variable as set. Adapted from the old multicast
// protocol's Test_SequentialCommands (one cluster, one key, a run of
// writes, then a check that every replica converged) to this engine's
// shared-object-plus-fetch model: there is no replica set to converge,
// only a peer that owns an object's latest version and a peer that asks
// for it.
func TestSequentialTransactionsPropagateAcrossPeers(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfgA, err := config.Parse([]string{"--port", "0", "--workers", "2"})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	peerA, err := CreateNetworkPeer(cfgA, toy.New())
	if err != nil {
		t.Fatalf("CreateNetworkPeer A failed: %v", err)
	}
	defer peerA.Stop(context.Background())

	cfgB, err := config.Parse([]string{"--port", "0", "--workers", "2", "--peers", peerA.listenAddr})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	peerB, err := CreateNetworkPeer(cfgB, toy.New())
	if err != nil {
		t.Fatalf("CreateNetworkPeer B failed: %v", err)
	}
	defer peerB.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (len(peerA.dir.Peers()) == 0 || len(peerB.dir.Peers()) == 0) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(peerA.dir.Peers()) == 0 || len(peerB.dir.Peers()) == 0 {
		t.Fatalf("peers never registered each other via Hello")
	}

	th := peerA.engine.NewThread()
	variableRef := th.CreateObject(toy.NewVariable(), "shared-variable", true)
	variableID, ok := peerA.store.GlobalID(variableRef)
	if !ok {
		t.Fatalf("newly created variable has no global id")
	}

	for n := int64(0); n < 5; n++ {
		th := peerA.engine.NewThread()
		valueRef := th.CreateObject(toy.IntObject{Value: n}, "", false)
		peerA.engine.RunTransaction(func(th *engine.Thread) (bridge.Value, bool) {
			return th.CallMethod(variableRef, "set", []bridge.Value{bridge.ObjectReference(valueRef, 0)})
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		obj, found := peerB.RequestObject(ctx, variableID)
		cancel()
		if !found {
			t.Fatalf("iteration %d: peer B could not fetch the shared variable", n)
		}
		variable, ok := obj.(*toy.VariableObject)
		if !ok {
			t.Fatalf("iteration %d: fetched object is %T, want *toy.VariableObject", n, obj)
		}
		if variable.Dump() != "Variable(set)" {
			t.Errorf("iteration %d: expected the fetched variable to be set", n)
		}
	}
}
