package netio

import (
	"net"

	"bandmon-server/internal/logger"
)

const fallbackInterface = "eth0"

// DetectDefaultInterface finds the NIC that carries the default route, by
// dialing a public address (no packet is sent for UDP) and matching the
// chosen local IP against interface addresses. Falls back to the first
// non-loopback interface with an IPv4 address, then to "eth0".
func DetectDefaultInterface(log logger.Logger) string {
	if name, err := defaultRouteInterface(); err == nil {
		log.Info("detected default network interface", "interface", name)
		return name
	} else {
		log.Warn("default route detection failed", "error", err)
	}

	if name, err := firstExternalInterface(); err == nil {
		log.Info("using first non-loopback interface", "interface", name)
		return name
	} else {
		log.Warn("interface enumeration failed", "error", err)
	}

	log.Warn("interface detection failed, falling back", "interface", fallbackInterface)
	return fallbackInterface
}

func defaultRouteInterface() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	localIP := conn.LocalAddr().(*net.UDPAddr).IP
	conn.Close()

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(localIP) {
				return iface.Name, nil
			}
		}
	}

	return "", ErrInterfaceNotFound
}

func firstExternalInterface() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.To4() != nil {
				return iface.Name, nil
			}
		}
	}

	return "", ErrInterfaceNotFound
}
