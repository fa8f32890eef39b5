package deploy

import "sort"

// =============================================================================
// CLI Argument Construction
// =============================================================================

// RunArgs renders a container plan as the argument vector for "docker run".
// Flags appear in a fixed order (name, restart policy, labels, network,
// ports, volumes, environment) and the image reference is always the final
// argument, so nothing after it can be parsed as a container command.
//
// Example:
//
//	RunArgs(plan) // ["run", "-d", "--name", "web", "--restart", "unless-stopped", "-p", "8080:80", "nginx:1.27"]
func RunArgs(p ContainerPlan) []string {
	args := []string{"run", "-d", "--name", p.Name}
	if p.RestartPolicy != "" {
		args = append(args, "--restart", p.RestartPolicy)
	}
	for _, k := range sortedLabelKeys(p.Labels) {
		args = append(args, "--label", k+"="+p.Labels[k])
	}
	if p.Network != "" {
		args = append(args, "--network", p.Network)
	}
	for _, pm := range p.Ports {
		args = append(args, "-p", pm.String())
	}
	for _, v := range p.Volumes {
		args = append(args, "-v", v.String())
	}
	for _, e := range p.Env {
		args = append(args, "-e", e.String())
	}
	return append(args, p.Image)
}

func sortedLabelKeys(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
