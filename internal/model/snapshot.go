package model

// NetworkStats mirrors network/stats: the main chain tip as seen by p2pool.
type NetworkStats struct {
	Difficulty Number `json:"difficulty"`
	Hash       string `json:"hash"`
	Height     Number `json:"height"`
	Reward     Atomic `json:"reward"`
	Timestamp  Number `json:"timestamp"`
}

// PoolStatistics is the nested pool_statistics object of pool/stats.
type PoolStatistics struct {
	HashRate            Number `json:"hashRate"`
	Miners              Number `json:"miners"`
	TotalHashes         Number `json:"totalHashes"`
	LastBlockFoundTime  Number `json:"lastBlockFoundTime"`
	LastBlockFound      Number `json:"lastBlockFound"`
	TotalBlocksFound    Number `json:"totalBlocksFound"`
	PPLNSWeight         Number `json:"pplnsWeight"`
	PPLNSWindowSize     Number `json:"pplnsWindowSize"`
	SidechainDifficulty Number `json:"sidechainDifficulty"`
	SidechainHeight     Number `json:"sidechainHeight"`
}

// PoolStats mirrors pool/stats.
type PoolStats struct {
	PoolList       []string       `json:"pool_list"`
	PoolStatistics PoolStatistics `json:"pool_statistics"`
}

// PoolBlock is one entry of pool/blocks.
type PoolBlock struct {
	Height      Number `json:"height"`
	Hash        string `json:"hash"`
	Difficulty  Number `json:"difficulty"`
	TotalHashes Number `json:"totalHashes"`
	Timestamp   Number `json:"ts"`
}

// LocalStratum mirrors local/stratum. Workers holds the raw encoded lines;
// use DecodedWorkers for typed records.
type LocalStratum struct {
	Hashrate15m             Number   `json:"hashrate_15m"`
	Hashrate1h              Number   `json:"hashrate_1h"`
	Hashrate24h             Number   `json:"hashrate_24h"`
	TotalHashes             Number   `json:"total_hashes"`
	TotalStratumShares      Number   `json:"total_stratum_shares"`
	LastShareFoundTime      Number   `json:"last_share_found_time"`
	SharesFound             Number   `json:"shares_found"`
	SharesFailed            Number   `json:"shares_failed"`
	AverageEffort           Number   `json:"average_effort"`
	CurrentEffort           Number   `json:"current_effort"`
	Connections             Number   `json:"connections"`
	IncomingConnections     Number   `json:"incoming_connections"`
	BlockRewardSharePercent Number   `json:"block_reward_share_percent"`
	Wallet                  string   `json:"wallet"`
	Workers                 []string `json:"workers"`
}

// DecodedWorkers decodes every raw worker line in order.
func (s LocalStratum) DecodedWorkers() []WorkerRecord {
	out := make([]WorkerRecord, 0, len(s.Workers))
	for _, line := range s.Workers {
		out = append(out, DecodeWorker(line))
	}
	return out
}

// LocalP2P mirrors local/p2p. Peers holds the raw encoded lines.
type LocalP2P struct {
	Connections         Number   `json:"connections"`
	IncomingConnections Number   `json:"incoming_connections"`
	PeerListSize        Number   `json:"peer_list_size"`
	Peers               []string `json:"peers"`
	Uptime              Number   `json:"uptime"`
	ZMQLastActive       Number   `json:"zmq_last_active"`
}

// DecodedPeers decodes every raw peer line in order.
func (p LocalP2P) DecodedPeers() []PeerRecord {
	out := make([]PeerRecord, 0, len(p.Peers))
	for _, line := range p.Peers {
		out = append(out, DecodePeer(line))
	}
	return out
}

// Payout is one coinbase output paid to a miner address, as served by the
// observer. The observer returns them newest first.
type Payout struct {
	CoinbaseReward Atomic `json:"coinbase_reward"`
	CoinbaseID     string `json:"coinbase_id"`
	MainHeight     Number `json:"main_height"`
	Timestamp      Number `json:"timestamp"`
}
