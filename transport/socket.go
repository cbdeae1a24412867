package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/nczempin/httpd-go-uring/errors"
)

// ListenSocket creates a blocking stream socket with SO_REUSEADDR and
// SO_REUSEPORT set, binds it to ep and listens with the given backlog.
// Several processes may call this for the same endpoint; the kernel then
// spreads incoming connections across them.
func ListenSocket(ep Endpoint, backlog int) (int, error) {
	sa, family, err := sockaddr(ep)
	if err != nil {
		return -1, err
	}

	// Create socket
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.NewSetupError(
			errors.SetupErrorSocketCreate,
			"Unable to create socket",
			err,
		)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, errors.NewSetupError(
			errors.SetupErrorSocketOption,
			"Unable to set SO_REUSEADDR",
			err,
		)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return -1, errors.NewSetupError(
			errors.SetupErrorSocketOption,
			"Unable to set SO_REUSEPORT",
			err,
		)
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, errors.NewSetupError(
			errors.SetupErrorBind,
			fmt.Sprintf("Unable to bind socket to %s", ep),
			err,
		)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, errors.NewSetupError(
			errors.SetupErrorListen,
			fmt.Sprintf("Unable to listen on %s", ep),
			err,
		)
	}

	return fd, nil
}

func sockaddr(ep Endpoint) (unix.Sockaddr, int, error) {
	ip := net.ParseIP(ep.Host)
	if ip == nil {
		return nil, 0, errors.NewSetupError(
			errors.SetupErrorInvalidEndpoint,
			fmt.Sprintf("invalid listen address %q", ep.Host),
			nil,
		)
	}
	if ep.Port < 0 || ep.Port > 65535 {
		return nil, 0, errors.NewSetupError(
			errors.SetupErrorInvalidEndpoint,
			fmt.Sprintf("invalid listen port %d", ep.Port),
			nil,
		)
	}

	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &unix.SockaddrInet4{Port: ep.Port}
		copy(sa4.Addr[:], ip4)
		return sa4, unix.AF_INET, nil
	}

	sa6 := &unix.SockaddrInet6{Port: ep.Port}
	copy(sa6.Addr[:], ip.To16())
	return sa6, unix.AF_INET6, nil
}

// socketAddr reports the bound address of fd, which matters when port 0 was requested
func socketAddr(fd int) net.Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return &net.TCPAddr{}
	}

	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]), Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sa.Port}
	default:
		return &net.TCPAddr{}
	}
}

// wakeAndClose shuts fd down so a thread blocked in accept or recv on it
// returns, then closes it.
func wakeAndClose(fd int) error {
	unix.Shutdown(fd, unix.SHUT_RDWR)
	return unix.Close(fd)
}
