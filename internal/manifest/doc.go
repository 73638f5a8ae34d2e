// Package manifest turns a release id into the files that make it up.
//
// The package handles two main use cases:
//
//  1. Fetching the release listing and a release's descriptor from the mirror
//  2. Expanding a descriptor into download work items
//
// # Listing and Descriptors
//
//	client := manifest.NewClient(
//	    manifest.WithBaseURL(settings.MirrorBaseURL),
//	    manifest.WithLogger(log),
//	)
//	releases := client.ListReleases(ctx)        // empty on failure
//	desc := client.GetReleaseDescriptor(ctx, id) // nil on failure or unknown id
//
// LookupDescriptor and FetchReleases return the underlying error for callers
// that need to distinguish ErrReleaseNotFound from transport or decode
// failures.
//
// # Expansion
//
//	resolver := manifest.NewResolver(settings.MirrorBaseURL)
//	items := resolver.Expand(desc, settings.DownloadsPath)
//	// versions/1.20.1/1.20.1.json, versions/1.20.1/1.20.1.jar, libraries/...
package manifest
