// Package netutil 本机网络信息
package netutil

import (
	"net"

	"github.com/ceyewan/leaf/xerrors"
)

// ErrNoAddress 没有可用的非回环 IPv4 地址
var ErrNoAddress = xerrors.New("netutil: no non-loopback ipv4 address")

// LocalIP 返回第一个处于 up 状态、非回环网卡上的 IPv4 地址
func LocalIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", xerrors.Wrap(err, "list interfaces")
	}
	return firstIPv4(ifaces, func(i net.Interface) ([]net.Addr, error) { return i.Addrs() })
}

// Resolve 优先返回 configured，为空时探测本机地址
func Resolve(configured string) (string, error) {
	if configured != "" {
		if net.ParseIP(configured) == nil {
			return "", xerrors.Wrapf(xerrors.ErrInvalidInput, "ip %q", configured)
		}
		return configured, nil
	}
	return LocalIP()
}

func firstIPv4(ifaces []net.Interface, addrs func(net.Interface) ([]net.Addr, error)) (string, error) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range list {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4.String(), nil
			}
		}
	}
	return "", ErrNoAddress
}
