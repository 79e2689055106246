// Package kube provides low-level integration with Kubernetes via kubectl.
package kube

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Client wraps kubectl execution with optional kubeconfig and context selection.
type Client struct {
	Binary     string
	Kubeconfig string
	Context    string
}

// NewClient constructs a new Kubernetes client wrapper.
func NewClient(binary, kubeconfig, context string) *Client {
	if binary == "" {
		binary = "kubectl"
	}
	return &Client{
		Binary:     binary,
		Kubeconfig: kubeconfig,
		Context:    context,
	}
}

// WithContext returns a copy of the client bound to another kubeconfig context.
func (c *Client) WithContext(context string) *Client {
	if context == "" || context == c.Context {
		return c
	}
	clone := *c
	clone.Context = context
	return &clone
}

// ApplyResult is the parsed output of kubectl apply.
type ApplyResult struct {
	// Lines holds one line per applied object, e.g. "service/web unchanged".
	Lines []string
}

// Changed reports whether any object was created or configured.
func (r ApplyResult) Changed() bool {
	for _, line := range r.Lines {
		if !strings.HasSuffix(strings.TrimSpace(line), " unchanged") {
			return true
		}
	}
	return false
}

// Apply applies the given multi-document YAML to the cluster using kubectl apply -f -.
func (c *Client) Apply(ctx context.Context, manifest []byte, namespace string) (ApplyResult, error) {
	args := []string{"apply", "-f", "-"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	out, err := c.runKubectl(ctx, manifest, args...)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Lines: splitLines(out)}, nil
}

// Diff runs kubectl diff -f - and reports whether the live objects differ from manifest.
// The returned text is the diff itself.
func (c *Client) Diff(ctx context.Context, manifest []byte, namespace string) (bool, string, error) {
	args := []string{"diff", "-f", "-"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	out, err := c.runKubectl(ctx, manifest, args...)
	if err == nil {
		return false, string(out), nil
	}
	// kubectl diff exits with 1 when differences are found.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, string(out), nil
	}
	return false, "", err
}

// RolloutRestart restarts the given workloads, e.g. "deployment/web".
func (c *Client) RolloutRestart(ctx context.Context, namespace string, objects ...string) error {
	if len(objects) == 0 {
		return nil
	}
	args := append([]string{"rollout", "restart"}, objects...)
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	_, err := c.runKubectl(ctx, nil, args...)
	return err
}

func (c *Client) runKubectl(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if c.Context != "" {
		cmdArgs = append(cmdArgs, "--context", c.Context)
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.CommandContext(ctx, c.Binary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if c.Kubeconfig != "" {
		env := os.Environ()
		env = append(env, "KUBECONFIG="+c.Kubeconfig)
		cmd.Env = env
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && args[0] == "diff" {
			return stdout.Bytes(), err
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("kubectl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("kubectl %v failed: %w: %s", args, err, msg)
	}
	return stdout.Bytes(), nil
}

func splitLines(out []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
