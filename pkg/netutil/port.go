package netutil

import (
	"net"
	"strconv"
)

// GetAvailablePortForAddress returns a port that is currently free to listen
// on at the provided host
func GetAvailablePortForAddress(host string) (int, error) {
	lis, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer lis.Close()

	_, port, err := net.SplitHostPort(lis.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}

// GetAvailableListenAddress returns a host:port address that is currently free
// to listen on
func GetAvailableListenAddress(host string) (string, error) {
	port, err := GetAvailablePortForAddress(host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}
