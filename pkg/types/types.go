package types

import (
	"net"
	"strconv"
	"time"
)

type NodeID string

// NodeRecord is the directory's view of one registered node.
type NodeRecord struct {
	ID       NodeID    `json:"id"`
	Address  string    `json:"address"`
	Port     int       `json:"port"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

func (n NodeRecord) Endpoint() string {
	return net.JoinHostPort(n.Address, strconv.Itoa(n.Port))
}

// Location is an owner triple as captured at announcement time. It is not
// refreshed if the node later re-registers somewhere else.
type Location struct {
	NodeID  NodeID `json:"id"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (l Location) Endpoint() string {
	return net.JoinHostPort(l.Address, strconv.Itoa(l.Port))
}

type FileEntry struct {
	Name       string     `json:"name"`
	Owners     []Location `json:"owners"`
	UploadTime time.Time  `json:"upload_time"`
}

// ReplicaState is the state of a file as seen by a single node.
type ReplicaState int

const (
	ReplicaUnknown ReplicaState = iota
	ReplicaGhosted
	ReplicaMaterialized
)

func (s ReplicaState) String() string {
	switch s {
	case ReplicaGhosted:
		return "ghosted"
	case ReplicaMaterialized:
		return "materialized"
	default:
		return "unknown"
	}
}

// TimeFormat is used for every timestamp rendered into a status message.
const TimeFormat = "2006-01-02 15:04:05"
