package snowflake

import (
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
)

// 与 bwmarrin 默认的 NodeBits 一致
const maxNodeID = -1 ^ (-1 << 10)

// Generator hands out table set ids.
type Generator struct {
	node *snowflake.Node
}

// New creates a generator for nodeID. A negative nodeID derives one from the host.
func New(nodeID int64) (*Generator, error) {
	if nodeID < 0 {
		nodeID = hostNodeID()
	}
	if nodeID > maxNodeID {
		return nil, fmt.Errorf("snowflake node id %d out of range [0, %d]", nodeID, maxNodeID)
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Generate() int64 {
	return g.node.Generate().Int64()
}

func (g *Generator) GenerateString() string {
	return g.node.Generate().String()
}

// Time returns when id was generated. Ids not made by a Generator fail to parse.
func Time(id string) (time.Time, error) {
	sid, err := snowflake.ParseString(id)
	if err != nil {
		return time.Time{}, err
	}
	if sid <= 0 {
		return time.Time{}, fmt.Errorf("snowflake: invalid id %q", id)
	}
	return time.UnixMilli(sid.Time()), nil
}

// hostNodeID hashes the first non-loopback MAC (hostname when there is none) with the pid,
// so replicas on one host still get different nodes.
func hostNodeID() int64 {
	h := fnv.New32a()
	if mac := hardwareAddr(); len(mac) > 0 {
		_, _ = h.Write(mac)
	} else if name, err := os.Hostname(); err == nil {
		_, _ = h.Write([]byte(name))
	}
	_, _ = h.Write([]byte(strconv.Itoa(os.Getpid())))
	return int64(h.Sum32()) % (maxNodeID + 1)
}

func hardwareAddr() net.HardwareAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip, ok := addr.(*net.IPNet); ok && ip.IP.To4() != nil {
				return iface.HardwareAddr
			}
		}
	}
	return nil
}
