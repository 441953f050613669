package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/policy"
	"checkpoint/pkg/platform/sentinel"
)

// PostgresPolicyStore reads site policies from the site_policies table, which
// the external authoring surface owns.
type PostgresPolicyStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPolicyStore(pool *pgxpool.Pool) *PostgresPolicyStore {
	return &PostgresPolicyStore{pool: pool}
}

func (s *PostgresPolicyStore) FindBySite(ctx context.Context, siteID string) (*policy.SitePolicy, error) {
	var p policy.SitePolicy
	var lat, lng *float64
	var radius *float64
	var network *string
	err := s.pool.QueryRow(ctx, `
		select site_id, center_lat, center_lng, radius_meters, network_id,
		       work_start_minutes, work_end_minutes, late_after_minutes,
		       half_day_after_minutes, timezone
		from site_policies
		where site_id = $1
	`, siteID).Scan(&p.SiteID, &lat, &lng, &radius, &network,
		&p.WorkStartMinutes, &p.WorkEndMinutes, &p.LateAfterMinutes,
		&p.HalfDayAfterMins, &p.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("site policy %q: %w", siteID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find site policy: %w", err)
	}

	if lat != nil && lng != nil {
		p.HasGeofence = true
		p.Center.Lat = *lat
		p.Center.Lng = *lng
		if radius != nil {
			p.RadiusMeters = *radius
		}
	}
	if network != nil {
		p.NetworkID = *network
	}
	p.Normalize()
	return &p, nil
}
