// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package updater checks GitHub for a newer release.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/wneessen/easyfatt-export/internal/http"
)

const (
	APIEndpoint = "https://api.github.com/repos/%s/releases/latest"
	APITimeout  = time.Second * 5
	tokenEnv    = "GITHUB_TOKEN"
)

var ErrInvalidRepository = errors.New("repository must be given as owner/name")

// Release is the latest published release of the repository.
type Release struct {
	URL       string    `json:"html_url"`
	Version   string    `json:"tag_name"`
	Published time.Time `json:"published_at"`
	Message   string    `json:"message"`
}

func (r Release) String() string {
	return fmt.Sprintf("%s (%s)", r.Version, r.Published.Format(time.DateOnly))
}

type Updater struct {
	http       *http.Client
	repository string
	token      string
}

// New returns an Updater for the owner/name repository. A GITHUB_TOKEN from the environment
// is sent with every request.
func New(client *http.Client, repository string) (*Updater, error) {
	repository = strings.Trim(strings.TrimSpace(repository), "/")
	owner, name, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepository, repository)
	}
	return &Updater{
		http:       client,
		repository: repository,
		token:      os.Getenv(tokenEnv),
	}, nil
}

// Latest returns the latest release.
func (u *Updater) Latest(ctx context.Context) (Release, error) {
	var release Release
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if u.token != "" {
		headers["Authorization"] = "Token " + u.token
	}

	code, err := u.http.GetWithTimeout(ctx, fmt.Sprintf(APIEndpoint, u.repository), &release, nil, headers,
		APITimeout)
	if err != nil {
		return release, fmt.Errorf("failed to retrieve latest release: %w", err)
	}
	if code != 200 {
		return release, fmt.Errorf("received non-positive response code from GitHub API: %d %s", code,
			release.Message)
	}
	if !semver.IsValid(canonical(release.Version)) {
		return release, fmt.Errorf("latest release has an invalid version %q", release.Version)
	}
	return release, nil
}

// Check returns the latest release and whether it is newer than current. Development builds
// without a valid version never see an update.
func (u *Updater) Check(ctx context.Context, current string) (Release, bool, error) {
	release, err := u.Latest(ctx)
	if err != nil {
		return release, false, err
	}
	current = canonical(current)
	if !semver.IsValid(current) {
		return release, false, nil
	}
	return release, semver.Compare(canonical(release.Version), current) > 0, nil
}

func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version != "" && !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}
