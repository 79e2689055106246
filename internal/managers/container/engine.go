package container

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// Engine is the container runtime surface the manager needs.
type Engine interface {
	// Inspect returns nil without error when the container does not exist.
	Inspect(ctx context.Context, name string) (*container.InspectResponse, error)
	Create(ctx context.Context, name string, cfg *container.Config, host *container.HostConfig) (string, error)
	Start(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Pull(ctx context.Context, ref string) error
}

// DockerEngine implements Engine with the Docker SDK.
// The client is created on first use.
type DockerEngine struct {
	host string
	cli  *client.Client
}

// NewDockerEngine returns an engine for host; an empty host uses the Docker environment defaults.
func NewDockerEngine(host string) *DockerEngine {
	return &DockerEngine{host: host}
}

func (d *DockerEngine) client() (*client.Client, error) {
	if d.cli != nil {
		return d.cli, nil
	}
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if d.host != "" {
		opts = append(opts, client.WithHost(d.host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	d.cli = cli
	return cli, nil
}

// Inspect returns the container named name.
func (d *DockerEngine) Inspect(ctx context.Context, name string) (*container.InspectResponse, error) {
	cli, err := d.client()
	if err != nil {
		return nil, err
	}
	resp, err := cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect container %s: %w", name, err)
	}
	return &resp, nil
}

// Create creates a container and returns its id.
func (d *DockerEngine) Create(ctx context.Context, name string, cfg *container.Config, host *container.HostConfig) (string, error) {
	cli, err := d.client()
	if err != nil {
		return "", err
	}
	resp, err := cli.ContainerCreate(ctx, cfg, host, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", name, err)
	}
	return resp.ID, nil
}

// Start starts a created or stopped container.
func (d *DockerEngine) Start(ctx context.Context, id string) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if err := cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", id, err)
	}
	return nil
}

// Remove force-removes a container.
func (d *DockerEngine) Remove(ctx context.Context, id string) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if err := cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	return nil
}

// Pull pulls ref and waits for the pull to complete.
func (d *DockerEngine) Pull(ctx context.Context, ref string) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer func() { _ = reader.Close() }()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}
