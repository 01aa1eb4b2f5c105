package container

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	specs "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/zombienet-go/zombienet/internal/provider"
)

// fakeConn is a no-op net.Conn so HijackedResponse.Close() (which calls
// Conn.Close()) doesn't panic on a nil interface in tests.
type fakeConn struct{ net.Conn }

func (fakeConn) Close() error                       { return nil }
func (fakeConn) Read(b []byte) (int, error)          { return 0, io.EOF }
func (fakeConn) Write(b []byte) (int, error)         { return len(b), nil }
func (fakeConn) SetDeadline(time.Time) error         { return nil }
func (fakeConn) SetReadDeadline(time.Time) error     { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error    { return nil }

// fakeDockerClient implements dockerClient for testing without a real
// daemon, mirroring the reference runtime's own mockDockerClient shape.
type fakeDockerClient struct {
	createCalls []string
	execCalls   []container.ExecOptions
	started     []string
	stopped     []string
	removed     []string
	volumes     []string
}

func (f *fakeDockerClient) ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *specs.Platform, name string) (container.CreateResponse, error) {
	f.createCalls = append(f.createCalls, name)
	return container.CreateResponse{ID: "container-" + name}, nil
}

func (f *fakeDockerClient) ContainerStart(ctx context.Context, id string, opts container.StartOptions) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDockerClient) ContainerStop(ctx context.Context, id string, opts container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeDockerClient) ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDockerClient) ContainerInspect(ctx context.Context, id string) (dockertypes.ContainerJSON, error) {
	return dockertypes.ContainerJSON{
		NetworkSettings: &dockertypes.NetworkSettings{
			DefaultNetworkSettings: dockertypes.DefaultNetworkSettings{IPAddress: "172.17.0.5"},
		},
	}, nil
}

func (f *fakeDockerClient) ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *fakeDockerClient) ContainerExecCreate(ctx context.Context, id string, cfg container.ExecOptions) (container.ExecCreateResponse, error) {
	f.execCalls = append(f.execCalls, cfg)
	return container.ExecCreateResponse{ID: "exec-1"}, nil
}

func (f *fakeDockerClient) ContainerExecAttach(ctx context.Context, execID string, cfg container.ExecAttachOptions) (dockertypes.HijackedResponse, error) {
	return dockertypes.HijackedResponse{
		Conn:   fakeConn{},
		Reader: bufio.NewReader(bytes.NewReader(nil)),
	}, nil
}

func (f *fakeDockerClient) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	return container.ExecInspect{ExitCode: 0}, nil
}

func (f *fakeDockerClient) CopyToContainer(ctx context.Context, id, path string, content io.Reader, opts container.CopyToContainerOptions) error {
	io.Copy(io.Discard, content)
	return nil
}

func (f *fakeDockerClient) CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, dockertypes.ContainerPathStat, error) {
	return io.NopCloser(bytes.NewReader(nil)), dockertypes.ContainerPathStat{}, nil
}

func (f *fakeDockerClient) VolumeCreate(ctx context.Context, opts volume.CreateOptions) (volume.Volume, error) {
	f.volumes = append(f.volumes, opts.Name)
	return volume.Volume{Name: opts.Name}, nil
}

func (f *fakeDockerClient) VolumeRemove(ctx context.Context, name string, force bool) error {
	return nil
}

func (f *fakeDockerClient) Close() error { return nil }

func newTestNamespace(t *testing.T) (*Namespace, *fakeDockerClient) {
	t.Helper()
	fake := &fakeDockerClient{}
	ns, err := New(context.Background(), "zombie", fake, nil, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ns, fake
}

func TestNewCreatesSharedVolumes(t *testing.T) {
	_, fake := newTestNamespace(t)
	if len(fake.volumes) != 2 {
		t.Fatalf("expected 2 shared volumes, got %v", fake.volumes)
	}
	if fake.volumes[0] != "zombie-zombie-wrapper" || fake.volumes[1] != "zombie-helper-binaries" {
		t.Errorf("unexpected volume names: %v", fake.volumes)
	}
}

func TestSpawnNodeStartsContainerAndWritesStartToken(t *testing.T) {
	ns, fake := newTestNamespace(t)
	node, err := ns.SpawnNode(context.Background(), provider.SpawnNodeOptions{
		Name:    "alice",
		Image:   "parity/polkadot:latest",
		Program: "polkadot",
		Args:    []string{"--validator"},
	})
	if err != nil {
		t.Fatalf("SpawnNode: %v", err)
	}

	if len(fake.createCalls) != 1 || len(fake.started) != 1 {
		t.Fatalf("expected container create+start once, got creates=%v starts=%v", fake.createCalls, fake.started)
	}

	found := false
	for _, call := range fake.execCalls {
		for _, c := range call.Cmd {
			if c == "echo start > /tmp/zombiepipe" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected a start token write via exec, got %v", fake.execCalls)
	}

	if node.Name() != "alice" {
		t.Errorf("Name() = %q", node.Name())
	}
}

func TestPauseResumeRestartWriteTokens(t *testing.T) {
	ns, fake := newTestNamespace(t)
	node, err := ns.SpawnNode(context.Background(), provider.SpawnNodeOptions{
		Name: "bob", Image: "img", Program: "cmd",
	})
	if err != nil {
		t.Fatalf("SpawnNode: %v", err)
	}

	node.Pause(context.Background())
	node.Resume(context.Background())
	node.Restart(context.Background(), 0)

	wantTokens := []string{"pause", "resume", "restart"}
	gotTokens := []string{}
	for _, call := range fake.execCalls {
		for _, c := range call.Cmd {
			for _, tok := range wantTokens {
				if c == "echo "+tok+" > /tmp/zombiepipe" {
					gotTokens = append(gotTokens, tok)
				}
			}
		}
	}
	if len(gotTokens) != 3 {
		t.Errorf("expected pause/resume/restart tokens written, got %v", gotTokens)
	}
}

func TestIPReturnsInspectedAddressUnderDocker(t *testing.T) {
	ns, _ := newTestNamespace(t)
	node, err := ns.SpawnNode(context.Background(), provider.SpawnNodeOptions{
		Name: "carol", Image: "img", Program: "cmd",
	})
	if err != nil {
		t.Fatalf("SpawnNode: %v", err)
	}

	ip, err := node.IP(context.Background())
	if err != nil {
		t.Fatalf("IP: %v", err)
	}
	if ip != "172.17.0.5" {
		t.Errorf("IP = %q, want inspected address", ip)
	}
}

func TestDestroyStopsAndRemovesContainer(t *testing.T) {
	ns, fake := newTestNamespace(t)
	node, err := ns.SpawnNode(context.Background(), provider.SpawnNodeOptions{
		Name: "dave", Image: "img", Program: "cmd",
	})
	if err != nil {
		t.Fatalf("SpawnNode: %v", err)
	}

	if err := node.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if len(fake.stopped) != 1 || len(fake.removed) != 1 {
		t.Errorf("expected one stop and one remove, got stopped=%v removed=%v", fake.stopped, fake.removed)
	}
}
