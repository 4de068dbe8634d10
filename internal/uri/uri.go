// Package uri builds repository server URLs and catalog keys.
package uri

import (
	"net/url"
	"path"
	"strings"
)

// StorageAPI is the path segment of the metadata (storage) API.
const StorageAPI = "/api/storage"

// Key joins a repository name and a path inside it into a catalog key,
// e.g. Key("npm-dev", "/foo/1.0.0", "/a.tgz") = "/npm-dev/foo/1.0.0/a.tgz".
func Key(repo string, parts ...string) string {
	elems := append([]string{"/", repo}, parts...)
	return path.Join(elems...)
}

// SplitKey returns the repository name and the in-repository path of a key.
func SplitKey(key string) (repo, rest string) {
	trimmed := strings.TrimPrefix(key, "/")
	repo, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return repo, "/"
	}
	return repo, "/" + rest
}

// StorageURL returns the storage API URL for a catalog key.
func StorageURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + StorageAPI + escape(key)
}

// ItemURL returns the plain item URL for a catalog key. Deletes must use this
// form; the storage API rejects DELETE with 400.
func ItemURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + escape(key)
}

// StripStorageAPI converts a storage API URL into an item URL.
func StripStorageAPI(u string) string {
	return strings.Replace(u, StorageAPI, "", 1)
}

// escape encodes each segment, keeping slashes, so names with spaces or
// parentheses survive the trip.
func escape(key string) string {
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
