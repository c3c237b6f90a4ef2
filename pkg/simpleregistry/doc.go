// Package simpleregistry provides the persistence boundary of a package
// registry: a distribution store that reads and writes package artifacts
// (manifests, abbreviated manifests, readmes, tarballs) on a pluggable blob
// store, and a user repository that persists users, auth tokens and WebAuthn
// credentials through an object-relational mapping layer.
//
// Absence is never an error. Lookups return a nil result with a nil error
// when nothing matches, and reads of missing artifacts return nil bytes.
// Backend failures surface as *StorageError values that match
// ErrStorageUnavailable, and stored text that fails to parse as JSON surfaces
// as ErrMalformedContent.
//
// Blob store implementations live under storage/ (memory, filesystem, S3);
// repository implementations live under repo/ (gorm for users, pgx and memory
// for package versions).
package simpleregistry
