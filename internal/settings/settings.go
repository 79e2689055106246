// Package settings holds process-level connection settings read from the environment.
package settings

import (
	"fmt"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

// Settings configures how managers reach the remote platforms.
type Settings struct {
	// BaseURL is the DC/OS cluster URL fronting the Mesos master and agent APIs.
	BaseURL string `env:"DCOS_BASE_URL"`
	// Token is the DC/OS ACS token sent with every cluster request.
	Token string `env:"DCOS_ACS_TOKEN"`
	// HTTPRetries bounds retries of idempotent cluster requests.
	HTTPRetries int `env:"DCOS_DEPLOY_HTTP_RETRIES" envDefault:"3"`
	// HTTPTimeout bounds a single cluster request.
	HTTPTimeout time.Duration `env:"DCOS_DEPLOY_HTTP_TIMEOUT" envDefault:"60s"`
	// Kubeconfig is passed to kubectl when set.
	Kubeconfig string `env:"KUBECONFIG"`
	// KubeContext is the default kubectl context.
	KubeContext string `env:"DCOS_DEPLOY_KUBE_CONTEXT"`
	// Kubectl is the kubectl binary.
	Kubectl string `env:"DCOS_DEPLOY_KUBECTL" envDefault:"kubectl"`
	// DockerHost overrides the Docker daemon address.
	DockerHost string `env:"DOCKER_HOST"`
	// Shell runs command units.
	Shell string `env:"DCOS_DEPLOY_SHELL" envDefault:"/bin/sh"`
}

// FromEnv parses Settings from the process environment.
func FromEnv() (Settings, error) {
	s, err := cenv.ParseAs[Settings]()
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings from environment: %w", err)
	}
	return s, nil
}

// FromMap parses Settings from an explicit environment map.
func FromMap(environment map[string]string) (Settings, error) {
	var s Settings
	if err := cenv.ParseWithOptions(&s, cenv.Options{Environment: environment}); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}
