package model

import (
	"strconv"
	"strings"
)

const (
	recordSeparator = ","

	// UnknownWorkerName is used when a worker line carries no name segment.
	UnknownWorkerName = "unknown"

	workerPrefixFields = 4
	peerFields         = 6
)

// WorkerRecord is one connected stratum worker decoded from
// "ADDRESS,UPTIME,DIFFICULTY,HASHRATE,NAME".
type WorkerRecord struct {
	Address    string
	Uptime     int64
	Difficulty int64
	Hashrate   int64
	Name       string
}

// Direction is the connection direction code of a P2P peer.
type Direction string

const (
	Inbound  Direction = "I"
	Outbound Direction = "O"
)

// String returns a human label for known codes and the raw code otherwise.
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return string(d)
	}
}

// PeerRecord is one P2P peer decoded from
// "DIRECTION,UPTIME,PING,VERSION,SIDECHAIN_HEIGHT,ADDRESS".
//
// Fields reports how many of the six positions were present in the line.
// Positions at or beyond Fields are undefined and hold zero values.
type PeerRecord struct {
	Direction       Direction
	Uptime          int64
	Ping            int64
	Version         string
	SidechainHeight int64
	Address         string
	Fields          int
}

// Complete reports whether every position of the line was present.
func (p PeerRecord) Complete() bool { return p.Fields >= peerFields }

// DecodeWorker decodes a worker line. It never fails: missing or malformed
// numbers become 0 and a missing name becomes UnknownWorkerName. The name is
// every field after the fourth, so names containing commas survive.
func DecodeWorker(line string) WorkerRecord {
	parts := strings.Split(line, recordSeparator)
	rec := WorkerRecord{
		Address:    field(parts, 0),
		Uptime:     leadingInt(field(parts, 1)),
		Difficulty: leadingInt(field(parts, 2)),
		Hashrate:   leadingInt(field(parts, 3)),
		Name:       UnknownWorkerName,
	}
	if len(parts) > workerPrefixFields {
		if name := strings.Join(parts[workerPrefixFields:], recordSeparator); name != "" {
			rec.Name = name
		}
	}
	return rec
}

// DecodePeer decodes a peer line positionally. Extra fields are ignored and
// unknown direction codes are kept as-is.
func DecodePeer(line string) PeerRecord {
	parts := strings.SplitN(line, recordSeparator, peerFields+1)
	if line == "" {
		parts = nil
	}
	fields := len(parts)
	if fields > peerFields {
		fields = peerFields
	}
	return PeerRecord{
		Direction:       Direction(field(parts, 0)),
		Uptime:          leadingInt(field(parts, 1)),
		Ping:            leadingInt(field(parts, 2)),
		Version:         field(parts, 3),
		SidechainHeight: leadingInt(field(parts, 4)),
		Address:         field(parts, 5),
		Fields:          fields,
	}
}

// SplitPeers partitions peers into outbound and inbound, keeping order.
// Peers with an unknown direction are in neither slice.
func SplitPeers(peers []PeerRecord) (outbound, inbound []PeerRecord) {
	for _, p := range peers {
		switch p.Direction {
		case Outbound:
			outbound = append(outbound, p)
		case Inbound:
			inbound = append(inbound, p)
		}
	}
	return outbound, inbound
}

// TotalWorkerHashrate sums the hashrate of all workers.
func TotalWorkerHashrate(workers []WorkerRecord) int64 {
	var total int64
	for _, w := range workers {
		total += w.Hashrate
	}
	return total
}

func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// leadingInt parses an optionally signed run of leading decimal digits after
// whitespace, so "12abc" reads as 12. Anything else, including overflow, is 0.
func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
