package deploy

// =============================================================================
// Container Plan
// =============================================================================

// Label keys stamped on every container deckhand creates.
const (
	LabelManaged  = "ci.deckhand.managed"
	LabelDeployID = "ci.deckhand.deploy-id"
)

// ContainerPlan is the planned creation input for one container. It is the
// pure output of planning, ready for a container engine to execute. Slice
// order follows the request; the engine must preserve it.
type ContainerPlan struct {
	Name          string
	Image         string
	Ports         []PortMapping
	Volumes       []VolumeMapping
	Env           []EnvVar
	Network       string
	RestartPolicy string
	Labels        map[string]string
}

// BuildPlan builds the creation input for a request. fileEnv holds the
// variables read from the request's env file (empty when the file is absent);
// they come first so that explicitly requested variables override them.
//
// The request should already have defaults applied (WithDefaults) and have
// passed Validate.
func BuildPlan(req Request, fileEnv []EnvVar) ContainerPlan {
	env := make([]EnvVar, 0, len(fileEnv)+len(req.Env))
	env = append(env, fileEnv...)
	env = append(env, req.Env...)

	ports := make([]PortMapping, len(req.Ports))
	copy(ports, req.Ports)
	volumes := make([]VolumeMapping, len(req.Volumes))
	copy(volumes, req.Volumes)

	return ContainerPlan{
		Name:          req.Name,
		Image:         req.Image,
		Ports:         ports,
		Volumes:       volumes,
		Env:           env,
		Network:       req.Network,
		RestartPolicy: req.RestartPolicy,
		Labels:        map[string]string{LabelManaged: "true"},
	}
}
