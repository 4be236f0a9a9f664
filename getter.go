package pluggable

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flytam/filenamify"
	getter "github.com/hashicorp/go-getter"
)

// Getter downloads remote module sources.
type Getter interface {
	// Get fetches src into a folder below destFolder. When the folder
	// already exists nothing is downloaded unless ignoreCache is true.
	//
	// Get returns the full path of the download folder, url characters in
	// src are encoded so the path is a valid file name.
	Get(ctx context.Context, src, destFolder string, ignoreCache bool) (string, error)
}

// GoGetter is a Getter using hashicorp/go-getter
type GoGetter struct {
	get func(ctx context.Context, src, dest, working string) error
}

// NewGoGetter creates a GoGetter that downloads any source go-getter
// understands
func NewGoGetter() *GoGetter {
	return &GoGetter{
		get: func(ctx context.Context, src, dest, working string) error {
			c := &getter.Client{
				Ctx:     ctx,
				Src:     src,
				Dst:     dest,
				Pwd:     working,
				Mode:    getter.ClientModeAny,
				Options: []getter.ClientOption{},
			}

			err := c.Get()
			if err != nil {
				return fmt.Errorf("unable to fetch module from %s: %w", src, err)
			}

			return nil
		},
	}
}

// Get implements Getter
func (g *GoGetter) Get(ctx context.Context, src, dest string, ignoreCache bool) (string, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// ensure the output folder is correctly encoded
	output, err := filenamify.Filenamify(src, filenamify.Options{
		Replacement: "_",
	})
	if err != nil {
		return "", fmt.Errorf("unable to create cache folder name for %s: %w", src, err)
	}

	downloadPath := filepath.Join(dest, output)

	_, err = os.Stat(downloadPath)
	if err == nil && !ignoreCache {
		return downloadPath, nil
	}

	return downloadPath, g.get(ctx, src, downloadPath, pwd)
}

var _ Getter = (*GoGetter)(nil)

// IsRemoteLocation returns true when location is not a local file and
// go-getter detects a remote source for it.
func IsRemoteLocation(location string) bool {
	if strings.HasPrefix(location, "file://") {
		return false
	}

	if _, err := os.Stat(location); err == nil {
		return false
	}

	if strings.Contains(location, "::") {
		return true
	}

	pwd, err := os.Getwd()
	if err != nil {
		return false
	}

	detected, err := getter.Detect(location, pwd, getter.Detectors)
	if err != nil {
		return false
	}

	return !strings.HasPrefix(detected, "file://")
}
