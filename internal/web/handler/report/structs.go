package report

// createBody is the request body for creating a report.
type createBody struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	AssignedTo  *uint64 `json:"assigned_to"`
}

// fieldBody is the request body for a single field update.
type fieldBody struct {
	Field string `json:"field" validate:"required,max=100"`
	Value string `json:"value"`
}

// respondBody is the request body for responding to a report.
type respondBody struct {
	Response string `json:"response" validate:"required"`
}

// shareBody is the request body for sharing a report.
type shareBody struct {
	UserID uint64 `json:"user_id" validate:"required"`
}

// reportItem is one row of the report list JSON response.
type reportItem struct {
	ID          uint64  `json:"id"`
	Number      string  `json:"number"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedBy   uint64  `json:"created_by"`
	AssignedTo  *uint64 `json:"assigned_to,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// historyItem is one row of the change history JSON response.
type historyItem struct {
	ID         uint64 `json:"id"`
	ActorID    uint64 `json:"actor_id"`
	ChangeType string `json:"change_type"`
	Field      string `json:"field,omitempty"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	CreatedAt  string `json:"created_at"`
}
