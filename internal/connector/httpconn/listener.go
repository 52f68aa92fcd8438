package httpconn

import "net"

func newListener(bind string) (net.Listener, error) {
	return net.Listen("tcp", bind)
}
