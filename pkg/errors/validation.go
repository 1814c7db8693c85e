package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety before it is
// placed into a registry URL.
//
// The rules are registry independent:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //)
//   - No backslashes
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names. Legacy packages may
// contain uppercase letters, so case is not enforced.
var npmPackageNameRegex = regexp.MustCompile(`^(@[A-Za-z0-9-~][A-Za-z0-9-._~]*/)?[A-Za-z0-9-~][A-Za-z0-9-._~]*$`)

// ValidateNpmPackageName validates an npm package name, scoped or not.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}
	return nil
}

// githubRepoRegex matches "owner/repo".
var githubRepoRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?/[A-Za-z0-9._-]+$`)

// ValidateGitHubRepo validates a GitHub "owner/repo" slug.
func ValidateGitHubRepo(slug string) error {
	if err := ValidatePackageName(slug); err != nil {
		return err
	}
	if !githubRepoRegex.MatchString(slug) {
		return New(ErrCodeInvalidPackage, "invalid GitHub repository: %q (want owner/repo)", slug)
	}
	return nil
}

// ValidateGitRef validates a branch, tag or commit reference.
func ValidateGitRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidInput, "git ref cannot be empty")
	}
	if len(ref) > 255 {
		return New(ErrCodeInvalidInput, "git ref too long (max 255 characters)")
	}
	for _, r := range ref {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "git ref contains invalid characters")
		}
	}
	if strings.Contains(ref, "..") || strings.ContainsAny(ref, "~^:?*[\\") {
		return New(ErrCodeInvalidInput, "git ref contains invalid characters: %q", ref)
	}
	return nil
}

// lockfileNames lists the lockfile basenames the scanner understands.
var lockfileNames = map[string]bool{
	"package-lock.json":   true,
	"npm-shrinkwrap.json": true,
	"yarn.lock":           true,
}

// ValidateLockfileName validates that filename is a simple basename of a
// supported lockfile.
func ValidateLockfileName(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidLockfile, "lockfile name cannot be empty")
	}
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidLockfile, "lockfile name cannot contain path separators")
	}
	if !lockfileNames[filename] {
		return New(ErrCodeInvalidLockfile, "unsupported lockfile: %q", filename)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
