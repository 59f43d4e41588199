package model

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type Node struct {
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Port             int     `json:"port"`
	APIPort          int     `json:"api_port"`
	UsageCoefficient float64 `json:"usage_coefficient"`
	XrayVersion      string  `json:"xray_version"`
	Status           string  `json:"status"`
}

type NodeUsageResponse struct {
	Usages []NodeUsage `json:"usages"`
}

type NodeUsage struct {
	NodeName string `json:"node_name"`
	Uplink   uint64 `json:"uplink"`
	Downlink uint64 `json:"downlink"`
}

type SystemStats struct {
	Version                string  `json:"version"`
	MemTotal               uint64  `json:"mem_total"`
	MemUsed                uint64  `json:"mem_used"`
	CPUCores               uint32  `json:"cpu_cores"`
	CPUUsage               float64 `json:"cpu_usage"`
	TotalUser              uint64  `json:"total_user"`
	OnlineUsers            uint64  `json:"online_users"`
	UsersActive            uint64  `json:"users_active"`
	IncomingBandwidth      uint64  `json:"incoming_bandwidth"`
	OutgoingBandwidth      uint64  `json:"outgoing_bandwidth"`
	IncomingBandwidthSpeed uint64  `json:"incoming_bandwidth_speed"`
	OutgoingBandwidthSpeed uint64  `json:"outgoing_bandwidth_speed"`
}

type CoreStats struct {
	Version string `json:"version"`
	Started bool   `json:"started"`
}

type UsersResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total,omitempty"`
}

type User struct {
	Username    string `json:"username"`
	Status      string `json:"status"`
	UsedTraffic uint64 `json:"used_traffic"`
}

// Snapshot is one refresh cycle's worth of panel data. It is only built
// once every fetch of the cycle has succeeded.
type Snapshot struct {
	Nodes      []Node
	NodeUsages []NodeUsage
	System     SystemStats
	Core       CoreStats
	Users      []User
}
