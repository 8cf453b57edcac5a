package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Notifier sends a PostgreSQL NOTIFY whenever a case is recorded, so review
// tooling can follow new cases without polling.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// NotifyStatement builds the NOTIFY command for a case.  NOTIFY takes no
// bind parameters, so the channel and payload are quoted inline.
func NotifyStatement(channel, caseID string) string {
	return fmt.Sprintf("NOTIFY %s, %s", pq.QuoteIdentifier(channel), pq.QuoteLiteral(caseID))
}

// Notify sends a notification carrying the case ID.
func (n *Notifier) Notify(ctx context.Context, caseID string) error {
	_, err := n.DB.ExecContext(ctx, NotifyStatement(n.Channel, caseID))
	return err
}
