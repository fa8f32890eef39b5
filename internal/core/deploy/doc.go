// Package deploy provides pure functions and value types for planning
// single-container deployments.
//
// This package contains the functional core of the deploy step: request
// validation and defaulting, container plan construction, command-line
// argument construction, and the health poll decision rules. All functions
// are pure (no I/O, no side effects); the imperative shell
// (internal/shell/docker) executes the resulting plans against a container
// engine.
//
// # Functions
//
//   - Requests: Apply defaults and validate (Request.WithDefaults, Request.Validate)
//   - Planning: Build creation inputs from requests (BuildPlan)
//   - Arguments: Render a plan as a docker CLI argument vector (RunArgs)
//   - Health: Classify container statuses during startup polling (EvaluateStatus)
//   - Parsing: Convert flag syntax to mappings (ParsePortMapping, ParseVolumeMapping, ParseEnvVar)
//
// # Usage
//
// The shell validates a request, plans it, and executes the plan:
//
//	if err := req.Validate(); err != nil { ... }
//	plan := deploy.BuildPlan(req, fileEnv)
//	id, err := engine.CreateAndStartContainer(ctx, plan)
package deploy
