package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// VersionRepository implements simpleregistry.VersionLookup using PostgreSQL
type VersionRepository struct {
	db DBTX
}

// New creates a new PostgreSQL version repository
func New(db DBTX) *VersionRepository {
	return &VersionRepository{db: db}
}

// NewWithPool creates a new PostgreSQL version repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *VersionRepository {
	return &VersionRepository{db: pool}
}

const distColumns = `%[1]s.dist_id, %[1]s.name, %[1]s.size, %[1]s.shasum, %[1]s.integrity, %[1]s.path`

var findPackageVersionQuery = fmt.Sprintf(`
	SELECT pv.package_id, pv.package_version_id, pv.version, pv.publish_time,
	       %s,
	       %s,
	       %s,
	       %s
	FROM package_versions pv
	JOIN dists md ON md.dist_id = pv.manifest_dist_id
	JOIN dists ad ON ad.dist_id = pv.abbreviated_dist_id
	JOIN dists rd ON rd.dist_id = pv.readme_dist_id
	JOIN dists td ON td.dist_id = pv.tar_dist_id
	WHERE pv.package_id = $1 AND pv.version = $2`,
	fmt.Sprintf(distColumns, "md"),
	fmt.Sprintf(distColumns, "ad"),
	fmt.Sprintf(distColumns, "rd"),
	fmt.Sprintf(distColumns, "td"),
)

func distDest(d *simpleregistry.Dist) []any {
	return []any{&d.DistID, &d.Name, &d.Size, &d.Shasum, &d.Integrity, &d.Path}
}

// FindPackageVersion returns nil, nil when the version does not exist
func (r *VersionRepository) FindPackageVersion(ctx context.Context, packageID, version string) (*simpleregistry.PackageVersion, error) {
	var pv simpleregistry.PackageVersion
	dest := []any{&pv.PackageID, &pv.PackageVersionID, &pv.Version, &pv.PublishTime}
	dest = append(dest, distDest(&pv.ManifestDist)...)
	dest = append(dest, distDest(&pv.AbbreviatedDist)...)
	dest = append(dest, distDest(&pv.ReadmeDist)...)
	dest = append(dest, distDest(&pv.TarDist)...)

	err := r.db.QueryRow(ctx, findPackageVersionQuery, packageID, version).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, handlePostgresError("find package version", err)
	}

	return &pv, nil
}

// handlePostgresError keeps the SQLSTATE in the message for the codes an
// operator can act on
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required: %w", operation, err)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s): %w", operation, pgErr.Message, pgErr.Code, err)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
