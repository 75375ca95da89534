package config

import (
	"context"
	"os"
)

// K8sProvider reads secrets in a Kubernetes pod. Secrets arrive as mounted
// files, so it wraps a FileProvider pointed at the mount path and only
// reports available when the pod's service account token is present.
type K8sProvider struct {
	fileProvider *FileProvider
	namespace    string
}

// NewK8sProvider creates a Kubernetes secret provider. secretsPath is where
// the deployment mounts the service's secrets; empty defaults to
// /var/secrets. The namespace is detected from the pod when not given.
func NewK8sProvider(secretsPath, namespace string) *K8sProvider {
	if secretsPath == "" {
		secretsPath = "/var/secrets"
	}
	if namespace == "" {
		if ns, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
			namespace = string(ns)
		} else {
			namespace = "default"
		}
	}

	return &K8sProvider{
		fileProvider: NewFileProvider(secretsPath),
		namespace:    namespace,
	}
}

// GetSecret reads the secret from its mounted file
func (k *K8sProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return k.fileProvider.GetSecret(ctx, key)
}

// Name returns the provider name
func (k *K8sProvider) Name() string {
	return "kubernetes"
}

// IsAvailable reports whether the process is running inside a pod with the
// secrets mount in place
func (k *K8sProvider) IsAvailable(ctx context.Context) bool {
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount/token"); err == nil {
		return k.fileProvider.IsAvailable(ctx)
	}
	return false
}

// GetNamespace returns the detected Kubernetes namespace
func (k *K8sProvider) GetNamespace() string {
	return k.namespace
}
