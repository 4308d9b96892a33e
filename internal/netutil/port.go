package netutil

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoBindAddr is returned when neither the preferred address nor any
// candidate can be listened on.
var ErrNoBindAddr = errors.New("no available bind address")

// SelectBindAddr returns preferred when it is free, else the first free
// candidate when autoFallback is set.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		ok, err := IsAddrAvailable(preferred)
		if err != nil {
			return "", err
		}
		if ok {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("%w: %s in use and fallback disabled", ErrNoBindAddr, preferred)
		}
	}

	for _, addr := range candidates {
		ok, err := IsAddrAvailable(addr)
		if err != nil {
			return "", err
		}
		if ok {
			return addr, nil
		}
	}

	return "", fmt.Errorf("%w (tried %d candidates)", ErrNoBindAddr, len(candidates))
}

// IsAddrAvailable returns true when an address can be listened on.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}
