package types

type TaskAccepted struct {
	TaskID string `json:"task_id"`
	Count  int    `json:"count"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
