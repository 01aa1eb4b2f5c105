// Package container implements the provider contract (internal/provider) by
// running every node inside a Docker container whose entrypoint is the
// zombie-wrapper FIFO script, grounded on the reference implementation's
// own Docker runtime (internal/daemon/runtime/docker.go's dockerClient
// abstraction) and spec.md §4.6's "Container implementation" paragraph.
package container

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	specs "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/zombienet-go/zombienet/internal/output"
	"github.com/zombienet-go/zombienet/internal/provider"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

const (
	fifoPath         = "/tmp/zombiepipe"
	wrapperScript    = "/scripts/zombie-wrapper.sh"
	wrapperVolSuffix = "-zombie-wrapper"
	helperVolSuffix  = "-helper-binaries"
)

// dockerClient is the subset of *client.Client this package needs,
// narrowed for testability the same way the reference runtime's own
// dockerClient interface does.
type dockerClient interface {
	ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig,
		netCfg *network.NetworkingConfig, platform *specs.Platform, name string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, id string, opts container.StartOptions) error
	ContainerStop(ctx context.Context, id string, opts container.StopOptions) error
	ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error
	ContainerInspect(ctx context.Context, id string) (dockertypes.ContainerJSON, error)
	ContainerLogs(ctx context.Context, id string, opts container.LogsOptions) (io.ReadCloser, error)
	ContainerExecCreate(ctx context.Context, id string, cfg container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, cfg container.ExecAttachOptions) (dockertypes.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	CopyToContainer(ctx context.Context, id, path string, content io.Reader, opts container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, id, path string) (io.ReadCloser, dockertypes.ContainerPathStat, error)
	VolumeCreate(ctx context.Context, opts volume.CreateOptions) (volume.Volume, error)
	VolumeRemove(ctx context.Context, name string, force bool) error
	Close() error
}

// Namespace manages every containerized node belonging to one run, plus
// the two shared volumes the wrapper protocol needs (spec.md §4.6).
type Namespace struct {
	name       string
	client     dockerClient
	logger     *output.Logger
	podman     bool
	wrapperVol string
	helperVol  string

	mu    sync.RWMutex
	nodes map[string]*Node
}

// New creates a namespace and its two shared volumes. podman should be set
// when the container runtime is Podman rather than Docker, since IP()
// resolution differs between the two (spec.md §4.6).
func New(ctx context.Context, name string, cli dockerClient, logger *output.Logger, podman bool) (*Namespace, error) {
	if logger == nil {
		logger = output.New()
	}
	ns := &Namespace{
		name:       name,
		client:     cli,
		logger:     logger,
		podman:     podman,
		wrapperVol: name + wrapperVolSuffix,
		helperVol:  name + helperVolSuffix,
		nodes:      make(map[string]*Node),
	}
	for _, v := range []string{ns.wrapperVol, ns.helperVol} {
		if _, err := cli.VolumeCreate(ctx, volume.CreateOptions{Name: v}); err != nil {
			return nil, zerr.New(zerr.IO, fmt.Sprintf("create shared volume %s", v), err)
		}
	}
	return ns, nil
}

// NewFromEnv dials the local Docker daemon using the standard environment
// variables (DOCKER_HOST, DOCKER_TLS_VERIFY, ...).
func NewFromEnv(ctx context.Context, name string, logger *output.Logger, podman bool) (*Namespace, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, zerr.New(zerr.IO, "create docker client", err)
	}
	return New(ctx, name, cli, logger, podman)
}

func (ns *Namespace) Name() string { return ns.name }

func (ns *Namespace) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		RequiresImage:        true,
		UseDefaultPortsInCmd: true,
		PrefixWithFullPath:   false,
		HasResources:         true,
	}
}

func containerNameFor(ns, node string) string {
	return fmt.Sprintf("%s-%s", ns, node)
}

// SpawnNode creates and starts a container whose entrypoint is the
// zombie-wrapper script; the wrapper blocks on the FIFO until the `start`
// token is written, which this call does once the container is running.
func (ns *Namespace) SpawnNode(ctx context.Context, opts provider.SpawnNodeOptions) (provider.Node, error) {
	ns.mu.Lock()
	if _, exists := ns.nodes[opts.Name]; exists {
		ns.mu.Unlock()
		return nil, zerr.NodeSpawningFailed(opts.Name, fmt.Errorf("node %q already spawned in this namespace", opts.Name))
	}
	ns.mu.Unlock()

	name := containerNameFor(ns.name, opts.Name)

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	exposed, bindings := natBindings(opts.PortMapping)

	cfg := &container.Config{
		Image:        opts.Image,
		Entrypoint:   []string{wrapperScript},
		Env:          env,
		Labels:       map[string]string{"zombienet.namespace": ns.name, "zombienet.node": opts.Name},
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		Binds: []string{
			ns.wrapperVol + ":/scripts",
			ns.helperVol + ":/helpers",
			opts.DataPath + ":/data",
		},
		PortBindings: bindings,
	}

	resp, err := ns.client.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return nil, zerr.NodeSpawningFailed(opts.Name, err)
	}

	if err := ns.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		ns.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, zerr.NodeSpawningFailed(opts.Name, err)
	}

	node := &Node{
		name:          opts.Name,
		containerID:   resp.ID,
		containerName: name,
		dataPath:      opts.DataPath,
		client:        ns.client,
		logger:        ns.logger,
		podman:        ns.podman,
	}

	for _, f := range opts.CfgFiles {
		if err := node.SendFile(ctx, f.LocalPath, f.RemotePath, f.Mode); err != nil {
			return nil, zerr.New(zerr.Spawn, "stage cfg file", err).WithNode(opts.Name)
		}
	}

	// Write program/args for the wrapper to pick up, then kick it out of
	// its blocking FIFO read with the start token.
	if err := node.writeWrapperCommand(ctx, opts.Program, opts.Args); err != nil {
		return nil, zerr.NodeSpawningFailed(opts.Name, err)
	}
	if err := node.writeFifoToken(ctx, "start"); err != nil {
		return nil, zerr.NodeSpawningFailed(opts.Name, err)
	}

	ns.mu.Lock()
	ns.nodes[opts.Name] = node
	ns.mu.Unlock()
	return node, nil
}

// SpawnNodeFromState reconstructs a Node handle bound to an already-running
// container id, for attach_to_live.
func (ns *Namespace) SpawnNodeFromState(ctx context.Context, name string, state provider.NodeState) (provider.Node, error) {
	node := &Node{
		name:          name,
		containerID:   state.ContainerID,
		containerName: state.ContainerName,
		client:        ns.client,
		logger:        ns.logger,
		podman:        ns.podman,
	}
	ns.mu.Lock()
	ns.nodes[name] = node
	ns.mu.Unlock()
	return node, nil
}

// GenerateFiles runs program/args in a transient, auto-removed container
// and returns its stdout.
func (ns *Namespace) GenerateFiles(ctx context.Context, opts provider.GenerateFilesOptions) (string, error) {
	cfg := &container.Config{
		Image:      opts.Image,
		Entrypoint: []string{opts.Program},
		Cmd:        opts.Args,
	}
	resp, err := ns.client.ContainerCreate(ctx, cfg, &container.HostConfig{AutoRemove: true}, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return "", zerr.ChainSpecGeneration("generate-files create", err)
	}
	defer ns.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

	for _, f := range opts.InputFiles {
		if err := copyLocalFileToContainer(ctx, ns.client, resp.ID, f.LocalPath, f.RemotePath, f.Mode); err != nil {
			return "", zerr.ChainSpecGeneration("generate-files stage input", err)
		}
	}

	if err := ns.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", zerr.ChainSpecGeneration("generate-files start", err)
	}

	logs, err := ns.client.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
	if err != nil {
		return "", zerr.ChainSpecGeneration("generate-files logs", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	stdcopy.StdCopy(&stdout, &stderr, logs)

	return stdout.String(), nil
}

// GetNodeAvailableArgs runs `<program> --help` in a transient container.
func (ns *Namespace) GetNodeAvailableArgs(ctx context.Context, program, image string) (string, error) {
	return ns.GenerateFiles(ctx, provider.GenerateFilesOptions{Image: image, Program: program, Args: []string{"--help"}})
}

func (ns *Namespace) Node(name string) (provider.Node, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	n, ok := ns.nodes[name]
	return n, ok
}

func (ns *Namespace) Nodes() []provider.Node {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make([]provider.Node, 0, len(ns.nodes))
	for _, n := range ns.nodes {
		out = append(out, n)
	}
	return out
}

// Destroy stops and removes every container plus the two shared volumes.
func (ns *Namespace) Destroy(ctx context.Context) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	for _, n := range ns.nodes {
		if err := n.Destroy(ctx); err != nil {
			ns.logger.Warn("failed to destroy container for %s: %v", n.name, err)
		}
	}
	ns.nodes = make(map[string]*Node)
	for _, v := range []string{ns.wrapperVol, ns.helperVol} {
		if err := ns.client.VolumeRemove(ctx, v, true); err != nil {
			ns.logger.Warn("failed to remove volume %s: %v", v, err)
		}
	}
	return nil
}

// Node is one zombie-wrapper-entrypoint container.
type Node struct {
	name          string
	containerID   string
	containerName string
	dataPath      string
	client        dockerClient
	logger        *output.Logger
	podman        bool
}

func (n *Node) Name() string    { return n.name }
func (n *Node) BaseDir() string { return n.dataPath }
func (n *Node) State() provider.NodeState {
	return provider.NodeState{ContainerID: n.containerID, ContainerName: n.containerName}
}

// writeWrapperCommand stages the program/args the wrapper should exec on
// the `start` token, as a newline-separated file the wrapper script reads.
func (n *Node) writeWrapperCommand(ctx context.Context, program string, args []string) error {
	content := strings.Join(append([]string{program}, args...), "\n")
	return writeFileToContainer(ctx, n.client, n.containerID, "/scripts/command", []byte(content), 0o644)
}

// writeFifoToken writes one supervision token (start/pause/resume/restart)
// into the wrapper's FIFO via exec, per spec.md §4.6's wrapper protocol.
func (n *Node) writeFifoToken(ctx context.Context, token string) error {
	_, stderr, exit, err := n.exec(ctx, []string{"sh", "-c", fmt.Sprintf("echo %s > %s", token, fifoPath)}, nil)
	if err != nil {
		return err
	}
	if exit != 0 {
		return fmt.Errorf("fifo token %q: exit %d: %s", token, exit, stderr)
	}
	return nil
}

func (n *Node) exec(ctx context.Context, cmd []string, env []string) (stdout, stderr string, exitCode int, err error) {
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
	}
	created, err := n.client.ContainerExecCreate(ctx, n.containerID, execCfg)
	if err != nil {
		return "", "", -1, zerr.New(zerr.Runtime, "exec create", err).WithNode(n.name)
	}
	attached, err := n.client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", "", -1, zerr.New(zerr.Runtime, "exec attach", err).WithNode(n.name)
	}
	defer attached.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, attached.Reader); err != nil {
		return "", "", -1, zerr.New(zerr.Runtime, "exec demux", err).WithNode(n.name)
	}

	inspected, err := n.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return outBuf.String(), errBuf.String(), -1, zerr.New(zerr.Runtime, "exec inspect", err).WithNode(n.name)
	}
	return outBuf.String(), errBuf.String(), inspected.ExitCode, nil
}

func (n *Node) RunCommand(ctx context.Context, program string, args []string, env map[string]string) (provider.CommandResult, error) {
	cmd := append([]string{program}, args...)
	envSlice := make([]string, 0, len(env))
	for k, v := range env {
		envSlice = append(envSlice, k+"="+v)
	}
	stdout, stderr, exit, err := n.exec(ctx, cmd, envSlice)
	res := provider.CommandResult{Stdout: stdout, Stderr: stderr, ExitCode: exit}
	if err != nil {
		return res, err
	}
	if exit != 0 {
		return res, zerr.New(zerr.Runtime, fmt.Sprintf("exec %s exited %d", program, exit), nil).WithNode(n.name)
	}
	return res, nil
}

// RunScript uploads then executes a local script, mirroring the
// send_file-then-exec shape of run_script in spec.md §4.6.
func (n *Node) RunScript(ctx context.Context, localScriptPath string, args []string, env map[string]string) (provider.CommandResult, error) {
	remote := "/scripts/" + baseName(localScriptPath)
	if err := n.SendFile(ctx, localScriptPath, remote, 0o755); err != nil {
		return provider.CommandResult{}, zerr.New(zerr.IO, "upload script", err).WithNode(n.name)
	}
	return n.RunCommand(ctx, remote, args, env)
}

// SendFile copies a local file into the container via a tar stream, then
// chmods it, mirroring `docker cp` + `exec chmod` (spec.md §4.6).
func (n *Node) SendFile(ctx context.Context, local, remote string, mode uint32) error {
	if err := copyLocalFileToContainer(ctx, n.client, n.containerID, local, remote, mode); err != nil {
		return err
	}
	_, _, _, err := n.exec(ctx, []string{"chmod", fmt.Sprintf("%o", mode), remote}, nil)
	return err
}

// ReceiveFile copies a file out of the container to a local path.
func (n *Node) ReceiveFile(ctx context.Context, remote, local string) error {
	rc, _, err := n.client.CopyFromContainer(ctx, n.containerID, remote)
	if err != nil {
		return zerr.New(zerr.IO, "copy from container", err).WithNode(n.name)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	if _, err := tr.Next(); err != nil {
		return zerr.New(zerr.IO, "read tar header", err).WithNode(n.name)
	}
	out, err := os.Create(local)
	if err != nil {
		return zerr.New(zerr.IO, "create local file", err).WithNode(n.name)
	}
	defer out.Close()
	_, err = io.Copy(out, tr)
	return err
}

// IP returns the container's address: loopback under Podman (host
// networking assumed), NetworkSettings.IPAddress under Docker.
func (n *Node) IP(ctx context.Context) (string, error) {
	if n.podman {
		return "127.0.0.1", nil
	}
	info, err := n.client.ContainerInspect(ctx, n.containerID)
	if err != nil {
		return "", zerr.New(zerr.Runtime, "inspect container", err).WithNode(n.name)
	}
	if info.NetworkSettings != nil && info.NetworkSettings.IPAddress != "" {
		return info.NetworkSettings.IPAddress, nil
	}
	return "127.0.0.1", nil
}

func (n *Node) Pause(ctx context.Context) error  { return n.writeFifoToken(ctx, "pause") }
func (n *Node) Resume(ctx context.Context) error { return n.writeFifoToken(ctx, "resume") }

// Restart writes the restart token into the FIFO; the wrapper is
// responsible for killing and re-execing the wrapped process in place
// (spec.md §4.6), so the container id is unchanged across a restart.
func (n *Node) Restart(ctx context.Context, after time.Duration) error {
	if after > 0 {
		select {
		case <-time.After(after):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return n.writeFifoToken(ctx, "restart")
}

func (n *Node) Destroy(ctx context.Context) error {
	timeoutSeconds := 30
	if err := n.client.ContainerStop(ctx, n.containerID, container.StopOptions{Timeout: &timeoutSeconds}); err != nil {
		n.logger.Warn("container %s did not stop cleanly: %v", n.containerName, err)
	}
	return n.client.ContainerRemove(ctx, n.containerID, container.RemoveOptions{Force: true})
}

func (n *Node) Logs(ctx context.Context) (string, error) {
	rc, err := n.client.ContainerLogs(ctx, n.containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", zerr.New(zerr.IO, "container logs", err).WithNode(n.name)
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	stdcopy.StdCopy(&stdout, &stderr, rc)
	return stdout.String(), nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// natBindings turns a container-port -> host-port map into the
// ExposedPorts set and PortBindings map the Docker API expects.
func natBindings(mapping map[int]int) (nat.PortSet, nat.PortMap) {
	exposed := make(nat.PortSet, len(mapping))
	bindings := make(nat.PortMap, len(mapping))
	for containerPort, hostPort := range mapping {
		p := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
		exposed[p] = struct{}{}
		bindings[p] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", hostPort)}}
	}
	return exposed, bindings
}

func copyLocalFileToContainer(ctx context.Context, cli dockerClient, containerID, local, remote string, mode uint32) error {
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	return writeFileToContainer(ctx, cli, containerID, remote, data, mode)
}

// writeFileToContainer packs a single file into a tar stream and copies it
// into the container at remote's directory, the raw-API equivalent of
// `docker cp`.
func writeFileToContainer(ctx context.Context, cli dockerClient, containerID, remote string, data []byte, mode uint32) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: baseName(remote),
		Mode: int64(mode),
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	dir := remote[:len(remote)-len(baseName(remote))]
	if dir == "" {
		dir = "/"
	}
	return cli.CopyToContainer(ctx, containerID, dir, &buf, container.CopyToContainerOptions{})
}
