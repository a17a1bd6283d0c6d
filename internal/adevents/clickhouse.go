package adevents

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseStore appends ad events to ClickHouse for analytics.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouseStore(conn driver.Conn) *ClickHouseStore {
	return &ClickHouseStore{conn: conn}
}

func (s *ClickHouseStore) Save(ctx context.Context, e *Event) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO ad_events
			(id, ad_id, event_type, page_key, placement,
			 viewer_state, viewer_city, viewer_pincode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.AdID, string(e.Type), e.PageKey, e.Placement,
		e.ViewerState, e.ViewerCity, e.ViewerPincode, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ad event: %w", err)
	}
	return nil
}
