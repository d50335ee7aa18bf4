// Copyright (c) 2024-2025 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"sync"
	"time"
)

// portToLocalHostAddr prepends a default host of 127.0.0.1 when the provided
// address is solely a port number.
func portToLocalHostAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		addr = net.JoinHostPort("127.0.0.1", addr)
	}
	return addr
}

// validateProfileAddr ensures the provided address is of the form "host:port"
// and that the port is between 1024 and 65535.
func validateProfileAddr(addr string) error {
	// Ensure the address is valid host:port syntax.
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	// Ensure the port is in range.
	if port, _ := strconv.Atoi(portStr); port < 1024 || port > 65535 {
		str := "address %q: port must be between 1024 and 65535"
		return fmt.Errorf(str, addr)
	}

	return nil
}

// profileServer provides facilities for starting and stopping an HTTP server
// that serves the pprof profiling endpoints.
type profileServer struct {
	wg     sync.WaitGroup
	mtx    sync.Mutex
	server *http.Server
}

// Start binds a listener to the provided address and launches an HTTP server
// that handles profiling endpoints in the background using that listener.  An
// error is returned when the listener fails to bind.
//
// It has no effect when the server is already running.  It is the caller's
// responsibility to call the Stop method to shutdown the server.
func (s *profileServer) Start(listenAddr string) error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is already running.
	if s.server != nil {
		return nil
	}

	listenAddr = portToLocalHostAddr(listenAddr)
	if err := validateProfileAddr(listenAddr); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", listenAddr, err)
	}

	// Redirect the root to the profiling endpoints registered by the pprof
	// package.
	mux := http.NewServeMux()
	mux.Handle("/debug/", http.DefaultServeMux)
	mux.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))

	s.server = &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second * 3,
	}
	eqmnLog.Infof("Profiling server listening on %s", listener.Addr())
	s.wg.Add(1)
	go func(httpServer *http.Server) {
		defer s.wg.Done()

		err := httpServer.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			eqmnLog.Errorf("Profiling server listening on %s exited with "+
				"unexpected error: %v", listener.Addr(), err)
		}
	}(s.server)

	return nil
}

// Stop immediately closes the active listener and any connections to the
// profile server.
//
// It has no effect when the server is not running, so it may be called multiple
// times without error.
func (s *profileServer) Stop() error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is not running.
	if s.server == nil {
		return nil
	}

	// Shutdown the server and wait for the serving goroutine to finish.
	err := s.server.Close()
	s.server = nil
	s.wg.Wait()
	if err != nil {
		eqmnLog.Errorf("Profiling server stopped with unexpected error: %v",
			err)
		return err
	}

	eqmnLog.Info("Profiling server stopped")
	return nil
}
