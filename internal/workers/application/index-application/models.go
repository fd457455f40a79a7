package indexapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"indexedStatus"`
	IndexedAt     string `json:"indexedAt"` // ISO 8601
}
