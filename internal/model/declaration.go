package model

// DocumentDeclaration describes how to fetch and clean one legal document
// (e.g. the "Terms of Service" of a service).
type DocumentDeclaration struct {
	Location         string   `yaml:"location"`
	ContentSelectors []string `yaml:"contentSelectors"`
	NoiseSelectors   []string `yaml:"noiseSelectors"`
	Filters          []string `yaml:"filters"`
}

// ServiceDeclaration is one declared service and the documents tracked for
// it. Populated once at Engine.Init and never mutated afterwards.
type ServiceDeclaration struct {
	ServiceID string
	Documents map[string]DocumentDeclaration
}
