package mocks

import (
	"net"

	"github.com/stretchr/testify/mock"
)

type SecurityLayer struct{ mock.Mock }

func NewSecurityLayer(t testingT) *SecurityLayer {
	m := &SecurityLayer{}
	m.Mock.Test(t)
	register(t, m)
	return m
}

func (m *SecurityLayer) Listen(network, addr string) (net.Listener, error) {
	args := m.Called(network, addr)
	ln, _ := args.Get(0).(net.Listener)
	return ln, args.Error(1)
}
