// Package github reads package manifests from GitHub repositories.
//
// Dependencies declared as "github:owner/repo#ref" (or any of the git URL
// forms npm accepts) have no registry document. Their metadata is the
// repository's own package.json at that ref, fetched as a single file:
//
//	GET /repos/{owner}/{repo}/contents/package.json?ref={ref}
//	Accept: application/vnd.github.v3.raw
//
// When the manifest declares no license, [Client.FetchLicense] looks for a
// LICENSE file at the same ref so its text can be classified.
//
// # Authentication
//
// Pass a token (usually $GITHUB_TOKEN) to [NewClient]. Anonymous requests
// are limited to 60 per hour; exhausted quotas surface as rate-limit errors
// carrying the reset time.
package github
