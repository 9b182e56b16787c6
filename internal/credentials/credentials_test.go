package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-bridge/internal/fault"
)

type fakeInspector struct {
	procs      []ProcessInfo
	procErr    error
	ports      []int
	portErr    error
	authJSON   string
	authErr    error
	scans      atomic.Int64
	portLookup atomic.Int64
}

func (f *fakeInspector) EnumerateLanguageServers(context.Context) ([]ProcessInfo, error) {
	f.scans.Add(1)
	return f.procs, f.procErr
}

func (f *fakeInspector) ListeningPorts(context.Context, int) ([]int, error) {
	f.portLookup.Add(1)
	return f.ports, f.portErr
}

func (f *fakeInspector) ReadAuthDB(string) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.authJSON, nil
}

func newTestResolver(inspector Inspector) *Resolver {
	r := NewResolver(inspector)
	// Point the legacy fallback at a path that cannot exist.
	r.legacyConfig = filepath.Join("/nonexistent", "config.json")
	return r
}

func healthyInspector() *fakeInspector {
	return &fakeInspector{
		procs: []ProcessInfo{{
			PID:     731,
			CSRF:    "tok",
			ExtPort: 42100,
			Version: "1.48.2",
		}},
		ports:    []int{42110, 42103},
		authJSON: `{"apiKey":"key-123","loggedIn":true}`,
	}
}

func TestResolveHappyPath(t *testing.T) {
	r := newTestResolver(healthyInspector())
	creds, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		CSRFToken: "tok",
		GRPCPort:  42103,
		APIKey:    "key-123",
		Version:   "1.48.2",
	}, creds)
}

func TestResolveCachesWithinTTL(t *testing.T) {
	inspector := healthyInspector()
	r := newTestResolver(inspector)

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), inspector.scans.Load())

	r.Invalidate()
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), inspector.scans.Load())
}

func TestResolveNotRunning(t *testing.T) {
	r := newTestResolver(&fakeInspector{})
	_, err := r.Resolve(context.Background())
	assert.Equal(t, fault.NotRunning, fault.CodeOf(err))
}

func TestResolveCSRFMissing(t *testing.T) {
	r := newTestResolver(&fakeInspector{
		procs: []ProcessInfo{{PID: 1, ExtPort: 42100}},
	})
	_, err := r.Resolve(context.Background())
	assert.Equal(t, fault.CSRFMissing, fault.CodeOf(err))
}

func TestResolveAPIKeyMissing(t *testing.T) {
	inspector := healthyInspector()
	inspector.authErr = errors.New("no such table")
	r := newTestResolver(inspector)
	_, err := r.Resolve(context.Background())
	assert.Equal(t, fault.APIKeyMissing, fault.CodeOf(err))
}

func TestResolvePortFailureFallsBackToOffset(t *testing.T) {
	inspector := healthyInspector()
	inspector.ports = nil
	inspector.portErr = errors.New("proc unavailable")
	r := newTestResolver(inspector)
	creds, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42103, creds.GRPCPort)
}

func TestResolveVersionBaseline(t *testing.T) {
	inspector := healthyInspector()
	inspector.procs[0].Version = ""
	r := newTestResolver(inspector)
	creds, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, baselineVersion, creds.Version)
}

func TestAPIKeyFromAuthStatus(t *testing.T) {
	assert.Equal(t, "abc", apiKeyFromAuthStatus(`{"apiKey":"abc"}`))
	assert.Empty(t, apiKeyFromAuthStatus(`{"other":1}`))
	assert.Empty(t, apiKeyFromAuthStatus("not json"))
}
