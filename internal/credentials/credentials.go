// Package credentials resolves everything the bridge needs to talk to
// the local language server: the server's gRPC port, its CSRF token, the
// user's API key, and the IDE version. All four come from inspecting the
// running system, so results are cached briefly and recomputed on demand.
package credentials

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cascade-bridge/internal/fault"
)

// Credentials is the value record consumed by the cascade client.
type Credentials struct {
	CSRFToken string
	GRPCPort  int
	APIKey    string
	Version   string
}

const (
	cacheTTL = 5 * time.Second

	// baselineVersion stands in when the command line omits the flag.
	baselineVersion = "1.36.0"
)

// Resolver caches resolved credentials for cacheTTL. Concurrent misses
// collapse into one resolution pass.
type Resolver struct {
	inspector    Inspector
	stateDB      string
	legacyConfig string

	mu        sync.Mutex
	cached    Credentials
	fetchedAt time.Time

	group singleflight.Group
}

// NewResolver builds a resolver over the given OS inspector.
func NewResolver(inspector Inspector) *Resolver {
	return &Resolver{
		inspector:    inspector,
		stateDB:      stateDBPath(),
		legacyConfig: legacyConfigPath(),
	}
}

// Resolve returns credentials for the running language server, from cache
// when fresh.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	r.mu.Lock()
	if time.Since(r.fetchedAt) < cacheTTL && r.cached.GRPCPort > 0 {
		creds := r.cached
		r.mu.Unlock()
		return creds, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("resolve", func() (any, error) {
		creds, err := r.resolve(ctx)
		if err != nil {
			return Credentials{}, err
		}
		r.mu.Lock()
		r.cached = creds
		r.fetchedAt = time.Now()
		r.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

// Invalidate drops the cache, forcing the next Resolve to re-inspect.
// Called after a connection failure.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.fetchedAt = time.Time{}
	r.mu.Unlock()
}

func (r *Resolver) resolve(ctx context.Context) (Credentials, error) {
	procs, err := r.inspector.EnumerateLanguageServers(ctx)
	if err != nil {
		return Credentials{}, fault.Wrap(fault.NotRunning, err, "language server process scan failed")
	}
	if len(procs) == 0 {
		return Credentials{}, fault.New(fault.NotRunning, "windsurf language server is not running")
	}

	// First match wins.
	proc := procs[0]
	if proc.CSRF == "" || proc.ExtPort == 0 {
		return Credentials{}, fault.New(fault.CSRFMissing, "language server pid %d lacks csrf/port flags", proc.PID)
	}

	ports, err := r.inspector.ListeningPorts(ctx, proc.PID)
	if err != nil {
		slog.Warn("listening port discovery failed, using offset fallback", "pid", proc.PID, "err", err)
	}
	grpcPort := selectGRPCPort(ports, proc.ExtPort)

	apiKey := r.lookupAPIKey()
	if apiKey == "" {
		return Credentials{}, fault.New(fault.APIKeyMissing, "no api key in state database or legacy config")
	}

	version := proc.Version
	if version == "" {
		version = baselineVersion
	}

	creds := Credentials{
		CSRFToken: proc.CSRF,
		GRPCPort:  grpcPort,
		APIKey:    apiKey,
		Version:   version,
	}
	slog.Debug("resolved credentials", "pid", proc.PID, "grpc_port", grpcPort, "version", version)
	return creds, nil
}

func (r *Resolver) lookupAPIKey() string {
	if value, err := r.inspector.ReadAuthDB(r.stateDB); err == nil {
		if key := apiKeyFromAuthStatus(value); key != "" {
			return key
		}
	}
	return apiKeyFromLegacyConfig(r.legacyConfig)
}
