package model

import "testing"

func TestDecodeWorkerFull(t *testing.T) {
	w := DecodeWorker("10.0.0.2:51234,3600,25000,1500,rig-01")
	want := WorkerRecord{Address: "10.0.0.2:51234", Uptime: 3600, Difficulty: 25000, Hashrate: 1500, Name: "rig-01"}
	if w != want {
		t.Fatalf("unexpected worker: %+v", w)
	}
}

func TestDecodeWorkerNameWithCommas(t *testing.T) {
	w := DecodeWorker("1.2.3.4:1,10,20,30,basement,left,shelf")
	if w.Name != "basement,left,shelf" {
		t.Fatalf("name should keep embedded commas, got %q", w.Name)
	}
}

func TestDecodeWorkerMalformed(t *testing.T) {
	cases := []string{
		"",
		"1.2.3.4:1",
		"1.2.3.4:1,abc",
		"1.2.3.4:1,x,y,z",
		"1.2.3.4:1,,,,",
		",,,",
	}
	for _, line := range cases {
		w := DecodeWorker(line)
		if w.Hashrate != 0 || w.Difficulty != 0 || w.Uptime != 0 {
			t.Errorf("%q: numeric fields should default to 0, got %+v", line, w)
		}
		if w.Name != UnknownWorkerName {
			t.Errorf("%q: name should default to %q, got %q", line, UnknownWorkerName, w.Name)
		}
	}
}

func TestDecodeWorkerLeadingDigits(t *testing.T) {
	w := DecodeWorker("a,12s,7.5,99999999999999999999999,n")
	if w.Uptime != 12 {
		t.Errorf("uptime should parse leading digits, got %d", w.Uptime)
	}
	if w.Difficulty != 7 {
		t.Errorf("difficulty should truncate at the dot, got %d", w.Difficulty)
	}
	if w.Hashrate != 0 {
		t.Errorf("overflowing hashrate should become 0, got %d", w.Hashrate)
	}
}

func TestDecodePeer(t *testing.T) {
	p := DecodePeer("O,3600,42,1.2.3,100,1.2.3.4:3333")
	want := PeerRecord{
		Direction:       Outbound,
		Uptime:          3600,
		Ping:            42,
		Version:         "1.2.3",
		SidechainHeight: 100,
		Address:         "1.2.3.4:3333",
		Fields:          6,
	}
	if p != want {
		t.Fatalf("unexpected peer: %+v", p)
	}
	if !p.Complete() {
		t.Fatal("six-field peer should be complete")
	}
}

func TestDecodePeerShortLine(t *testing.T) {
	p := DecodePeer("I,60")
	if p.Direction != Inbound || p.Uptime != 60 {
		t.Fatalf("present positions should decode, got %+v", p)
	}
	if p.Fields != 2 || p.Complete() {
		t.Fatalf("short line should report 2 fields, got %d", p.Fields)
	}
	if p.Address != "" || p.Version != "" || p.Ping != 0 {
		t.Fatalf("missing positions should be zero, got %+v", p)
	}

	if empty := DecodePeer(""); empty.Fields != 0 {
		t.Fatalf("empty line should have no fields, got %d", empty.Fields)
	}
}

func TestDecodePeerUnknownDirection(t *testing.T) {
	p := DecodePeer("X,1,2,v,3,addr")
	if p.Direction != "X" {
		t.Fatalf("unknown direction should pass through, got %q", p.Direction)
	}
	if p.Direction.String() != "X" {
		t.Fatalf("String should fall back to the raw code")
	}
	if Outbound.String() != "outbound" || Inbound.String() != "inbound" {
		t.Fatal("known directions should have labels")
	}
}

func TestSplitPeers(t *testing.T) {
	peers := []PeerRecord{
		DecodePeer("O,1,1,v,1,a"),
		DecodePeer("I,1,1,v,1,b"),
		DecodePeer("?,1,1,v,1,c"),
		DecodePeer("O,1,1,v,1,d"),
	}
	out, in := SplitPeers(peers)
	if len(out) != 2 || out[0].Address != "a" || out[1].Address != "d" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	if len(in) != 1 || in[0].Address != "b" {
		t.Fatalf("unexpected inbound: %+v", in)
	}
}

func TestTotalWorkerHashrate(t *testing.T) {
	s := LocalStratum{Workers: []string{"a,1,1,100,x", "b,1,1,250,y", "garbage"}}
	if got := TotalWorkerHashrate(s.DecodedWorkers()); got != 350 {
		t.Fatalf("expected 350, got %d", got)
	}
}
