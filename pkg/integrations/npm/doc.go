// Package npm provides an HTTP client for the npm registry API.
//
// # Usage
//
//	client := npm.NewClient(nil, 24*time.Hour)
//	info, err := client.FetchVersion(ctx, "express", "4.18.2", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(info.License, info.Dependencies)
//
// # Version documents
//
// The client requests GET {registry}/{name}/{version}, one document per
// package version. Scoped names are sent as "@scope%2Fname". Only runtime
// "dependencies" are read; dev, peer and optional dependencies are ignored.
//
// The license is taken from "license" (string or {type} object) or the
// first entry of the legacy "licenses" array, spelled as published.
//
// # Caching
//
// Documents are cached under "npm:{name}@{version}". Pass refresh=true to
// bypass the cache.
package npm
