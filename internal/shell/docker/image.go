package docker

import (
	"archive/tar"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/jsonmessage"
)

// =============================================================================
// Image Operations
// =============================================================================

// PullImage pulls an image, draining the progress stream.
func (e *SDKEngine) PullImage(ctx context.Context, ref string) error {
	reader, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "manifest unknown") {
			return newEngineError("PullImage", "image", ref, "image not found in registry", ErrImageNotFound)
		}
		return newEngineError("PullImage", "image", ref, err.Error(), ErrImagePull)
	}
	defer reader.Close()

	// The pull is not complete until the stream is consumed.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return newEngineError("PullImage", "image", ref, err.Error(), ErrImagePull)
	}
	return nil
}

// ImageExists reports whether the image is present locally.
func (e *SDKEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, _, err := e.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if strings.Contains(err.Error(), "No such image") {
			return false, nil
		}
		return false, newEngineError("ImageExists", "image", ref, err.Error(), err)
	}
	return true, nil
}

// BuildImage builds an image from spec.ContextDir and streams build progress
// to spec.Output.
func (e *SDKEngine) BuildImage(ctx context.Context, spec BuildSpec) error {
	if len(spec.Tags) == 0 {
		return newEngineError("BuildImage", "image", "", "at least one tag is required", ErrImageBuild)
	}
	out := spec.Output
	if out == nil {
		out = io.Discard
	}
	dockerfile := spec.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}

	buildContext, err := tarBuildContext(spec.ContextDir)
	if err != nil {
		return newEngineError("BuildImage", "image", spec.Tags[0], err.Error(), ErrImageBuild)
	}
	defer buildContext.Close()

	buildArgs := make(map[string]*string, len(spec.BuildArgs))
	for _, arg := range spec.BuildArgs {
		value := arg.Value
		buildArgs[arg.Key] = &value
	}

	resp, err := e.cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       spec.Tags,
		Dockerfile: dockerfile,
		BuildArgs:  buildArgs,
		Remove:     true,
	})
	if err != nil {
		return newEngineError("BuildImage", "image", spec.Tags[0], err.Error(), ErrImageBuild)
	}
	defer resp.Body.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil); err != nil {
		return newEngineError("BuildImage", "image", spec.Tags[0], err.Error(), ErrImageBuild)
	}
	return nil
}

// PushImage pushes the image reference, authenticating when auth is set.
func (e *SDKEngine) PushImage(ctx context.Context, ref string, auth RegistryAuth) error {
	encoded, err := encodeRegistryAuth(auth)
	if err != nil {
		return newEngineError("PushImage", "image", ref, err.Error(), ErrImagePush)
	}

	reader, err := e.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encoded})
	if err != nil {
		return newEngineError("PushImage", "image", ref, err.Error(), ErrImagePush)
	}
	defer reader.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		return newEngineError("PushImage", "image", ref, err.Error(), ErrImagePush)
	}
	return nil
}

// encodeRegistryAuth renders the X-Registry-Auth header value. The daemon
// rejects an empty string, so unauthenticated pushes send an empty object.
func encodeRegistryAuth(auth RegistryAuth) (string, error) {
	payload, err := json.Marshal(registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// =============================================================================
// Build Context
// =============================================================================

// tarBuildContext streams dir as an uncompressed tar. The .git directory is
// skipped; everything else ships to the daemon.
func tarBuildContext(dir string) (io.ReadCloser, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		tw := tar.NewWriter(pw)
		walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			if info.IsDir() && info.Name() == ".git" {
				return filepath.SkipDir
			}

			link := ""
			if info.Mode()&os.ModeSymlink != 0 {
				if link, err = os.Readlink(path); err != nil {
					return err
				}
			}
			header, err := tar.FileInfoHeader(info, link)
			if err != nil {
				return err
			}
			header.Name = filepath.ToSlash(rel)
			if info.IsDir() {
				header.Name += "/"
			}
			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			return err
		})
		if walkErr != nil {
			pw.CloseWithError(walkErr)
			return
		}
		if err := tw.Close(); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()
	return pr, nil
}
