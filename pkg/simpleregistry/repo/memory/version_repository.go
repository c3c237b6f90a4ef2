package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-registry/pkg/simpleregistry"
)

// VersionRepository implements simpleregistry.VersionLookup using in-memory storage
type VersionRepository struct {
	mu       sync.RWMutex
	versions map[string]simpleregistry.PackageVersion
}

// NewVersionRepository creates a new in-memory version repository
func NewVersionRepository() *VersionRepository {
	return &VersionRepository{
		versions: make(map[string]simpleregistry.PackageVersion),
	}
}

func versionKey(packageID, version string) string {
	return packageID + "@" + version
}

// PutPackageVersion stores or replaces a version
func (r *VersionRepository) PutPackageVersion(pv simpleregistry.PackageVersion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[versionKey(pv.PackageID, pv.Version)] = pv
}

// DeletePackageVersion removes a version if present
func (r *VersionRepository) DeletePackageVersion(packageID, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, versionKey(packageID, version))
}

func (r *VersionRepository) FindPackageVersion(ctx context.Context, packageID, version string) (*simpleregistry.PackageVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pv, exists := r.versions[versionKey(packageID, version)]
	if !exists {
		return nil, nil
	}
	// Return a copy to prevent external modifications
	return &pv, nil
}
