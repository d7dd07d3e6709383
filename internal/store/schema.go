package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	llmRequestsTable = "llm_requests"
	tutorEventsTable = "tutor_events"
)

// Columns shared by every journal table: global sequence and UTC timestamp.
func eventColumns() []*schema.Column {
	return []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
	}
}

var (
	llmRequestColumns = append(eventColumns(),
		&schema.Column{Name: "session_id", Type: field.TypeString},
		&schema.Column{Name: "provider", Type: field.TypeString},
		&schema.Column{Name: "model", Type: field.TypeString},
		&schema.Column{Name: "purpose", Type: field.TypeString},
		&schema.Column{Name: "input_tokens", Type: field.TypeInt},
		&schema.Column{Name: "output_tokens", Type: field.TypeInt},
		&schema.Column{Name: "latency_ms", Type: field.TypeInt64},
		&schema.Column{Name: "success", Type: field.TypeBool},
		&schema.Column{Name: "error_message", Type: field.TypeString},
		&schema.Column{Name: "request_body", Type: field.TypeString, Size: 1 << 24},
		&schema.Column{Name: "response_body", Type: field.TypeString, Size: 1 << 24},
	)
	llmRequestsTableDef = &schema.Table{
		Name:       llmRequestsTable,
		Columns:    llmRequestColumns,
		PrimaryKey: []*schema.Column{llmRequestColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequest_timestamp", Columns: []*schema.Column{llmRequestColumns[2]}},
			{Name: "llmrequest_session_id", Columns: []*schema.Column{llmRequestColumns[3]}},
			{Name: "llmrequest_purpose", Columns: []*schema.Column{llmRequestColumns[6]}},
		},
	}

	tutorEventColumns = append(eventColumns(),
		&schema.Column{Name: "session_id", Type: field.TypeString},
		&schema.Column{Name: "event_id", Type: field.TypeString},
		&schema.Column{Name: "turn_id", Type: field.TypeInt},
		&schema.Column{Name: "seq", Type: field.TypeInt},
		&schema.Column{Name: "event_type", Type: field.TypeString},
		&schema.Column{Name: "title", Type: field.TypeString},
		&schema.Column{Name: "body", Type: field.TypeString, Size: 1 << 24},
		&schema.Column{Name: "data", Type: field.TypeString, Size: 1 << 24},
	)
	tutorEventsTableDef = &schema.Table{
		Name:       tutorEventsTable,
		Columns:    tutorEventColumns,
		PrimaryKey: []*schema.Column{tutorEventColumns[0]},
		Indexes: []*schema.Index{
			{Name: "tutorevent_session_turn", Columns: []*schema.Column{tutorEventColumns[3], tutorEventColumns[5], tutorEventColumns[6]}},
		},
	}

	tables = []*schema.Table{llmRequestsTableDef, tutorEventsTableDef}
)
