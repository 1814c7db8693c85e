package github

import (
	"strings"

	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
)

// maxOwnerLen is the longest user or organization name GitHub accepts.
const maxOwnerLen = 39

// ValidateRepoRef checks owner and repo before they are placed in a URL.
// Failures carry the INVALID_PACKAGE code.
func ValidateRepoRef(owner, repo string) error {
	if len(owner) > maxOwnerLen {
		return apperr.New(apperr.ErrCodeInvalidPackage, "GitHub owner %q longer than %d characters", owner, maxOwnerLen)
	}
	return apperr.ValidateGitHubRepo(owner + "/" + repo)
}

// ParseRepoRef splits and validates an "owner/repo" slug.
func ParseRepoRef(slug string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok {
		return "", "", apperr.New(apperr.ErrCodeInvalidPackage, "invalid GitHub repository %q: use owner/repo", slug)
	}
	if err := ValidateRepoRef(owner, repo); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}
