package store

import (
	"context"
	"database/sql"

	"github.com/clinicbook/internal/models"
)

// ListLocations is re-queried on every call; locations are provisioned
// out-of-band and never cached here.
func (s *Store) ListLocations(ctx context.Context) ([]models.ClinicLocation, error) {
	locations := []models.ClinicLocation{}
	err := s.withConn(ctx, "list locations", func(c *sql.Conn) error {
		rows, err := c.QueryContext(ctx, `SELECT id, name FROM clinic_locations ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l models.ClinicLocation
			if err := rows.Scan(&l.ID, &l.Name); err != nil {
				return err
			}
			locations = append(locations, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}
