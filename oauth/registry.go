// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package oauth

import (
	"sync"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/logger"
)

var (
	mu       sync.Mutex
	sessions = map[string]*Session{}
)

// GetClient returns the shared Session for a service name, creating it on
// first use from the process configuration.
func GetClient(name string, log logger.Logger) (*Session, error) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := sessions[name]; ok {
		return s, nil
	}

	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.Service(name)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.StderrLogger
	}
	log.Debugf("creating new OAuth client for %q", name)
	s := NewSession(name, sc, log)
	sessions[name] = s
	return s, nil
}

// Reset drops all cached sessions. Tests use it between configurations.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	sessions = map[string]*Session{}
}
