package kube

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// clusterScopedKinds never receive a namespace.
var clusterScopedKinds = map[string]struct{}{
	"Namespace":                      {},
	"ClusterRole":                    {},
	"ClusterRoleBinding":             {},
	"CustomResourceDefinition":       {},
	"PersistentVolume":               {},
	"StorageClass":                   {},
	"ValidatingWebhookConfiguration": {},
	"MutatingWebhookConfiguration":   {},
}

// DecodeDocuments splits a multi-document YAML stream into objects, dropping empty documents.
func DecodeDocuments(raw []byte) ([]map[string]any, error) {
	var docs []map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		if len(doc) == 0 {
			continue
		}
		if kind, _ := doc["kind"].(string); kind == "" {
			return nil, fmt.Errorf("manifest document %d has no kind", len(docs)+1)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// EncodeDocuments joins objects back into a multi-document YAML stream.
func EncodeDocuments(docs []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			_ = enc.Close()
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize manifest stream: %w", err)
	}
	return buf.Bytes(), nil
}

// ApplyNamespace sets metadata.namespace on namespaced objects that do not define one.
func ApplyNamespace(doc map[string]any, ns string) {
	if ns == "" {
		return
	}
	kind, _ := doc["kind"].(string)
	if _, ok := clusterScopedKinds[kind]; ok || kind == "" {
		return
	}
	meta := getOrCreateMap(doc, "metadata")
	if existing, _ := meta["namespace"].(string); strings.TrimSpace(existing) != "" {
		return
	}
	meta["namespace"] = ns
}

// ObjectName returns "kind/name" for display.
func ObjectName(doc map[string]any) string {
	kind, _ := doc["kind"].(string)
	name := ""
	if meta, ok := doc["metadata"].(map[string]any); ok {
		name, _ = meta["name"].(string)
	}
	return strings.ToLower(kind) + "/" + name
}

// getOrCreateMap returns an existing nested map or creates a new one at the given key.
func getOrCreateMap(parent map[string]any, key string) map[string]any {
	if val, ok := parent[key]; ok {
		if m, ok := val.(map[string]any); ok && m != nil {
			return m
		}
	}
	m := make(map[string]any)
	parent[key] = m
	return m
}

// Restartable reports whether kubectl rollout restart applies to the object.
func Restartable(doc map[string]any) bool {
	switch kind, _ := doc["kind"].(string); kind {
	case "Deployment", "StatefulSet", "DaemonSet":
		return true
	}
	return false
}

// Namespace returns metadata.namespace of the object.
func Namespace(doc map[string]any) string {
	if meta, ok := doc["metadata"].(map[string]any); ok {
		ns, _ := meta["namespace"].(string)
		return ns
	}
	return ""
}
