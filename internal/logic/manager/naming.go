package manager

import (
	"fmt"
	"regexp"
	"strings"
)

// maxNameLength is the DNS-1123 label bound for cluster resource names.
const maxNameLength = 63

var (
	separatorChars = regexp.MustCompile(`[\s_.]+`)
	invalidChars   = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns     = regexp.MustCompile(`-{2,}`)
)

// NormalizeName maps an arbitrary requested name to a valid cluster resource
// name. The mapping is deterministic: lowercase, whitespace/underscores/dots
// become hyphens, all other invalid characters are dropped, hyphen runs are
// collapsed, and the result is trimmed and truncated to 63 characters.
func NormalizeName(name string) (string, error) {
	s := strings.ToLower(name)
	s = separatorChars.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], "-")
	}

	if s == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return s, nil
}

// ServiceName derives the Service name for a server.
func ServiceName(podName string) string {
	return podName + "-svc"
}

// IngressName derives the management API Ingress name for a server.
func IngressName(podName string) string {
	return "servertap-" + podName + "-ingress"
}

// ServerTapConfigName derives the per-server ServerTap ConfigMap name.
func ServerTapConfigName(podName string) string {
	return "servertap-config-" + podName
}

// PVName derives the PersistentVolume name backing a claim.
func PVName(pvcName string) string {
	return "pv-" + pvcName
}

// ProvisionJobName derives the NFS directory provisioning Job name.
func ProvisionJobName(pvcName string) string {
	return ProvisionJobPrefix + pvcName
}
