package orchestrator

import "fmt"

// bootnodeMultiaddr formats a started node's dialable address the way the
// composer's own --listen-addr builds its ws-transport multiaddr
// (internal/command's "/ip4/0.0.0.0/tcp/<port>/ws"), but bound to the
// node's actual host/port and suffixed with its peer id, the standard
// libp2p "/p2p/<peer-id>" convention.
func bootnodeMultiaddr(ip string, p2pPort int, peerID string) string {
	if ip == "" {
		ip = "127.0.0.1"
	}
	return fmt.Sprintf("/ip4/%s/tcp/%d/ws/p2p/%s", ip, p2pPort, peerID)
}
