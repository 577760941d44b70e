package model

// EditorState is the UI state carried across a form submit and reload.
type EditorState struct {
	Region    string   `json:"region"`
	ScrollY   float64  `json:"scrollY"`
	Collapsed []string `json:"collapsed"`
}

// Document is a host page: the initialization payload plus the rendered rows.
type Document struct {
	Path    string  `json:"path,omitempty"`
	Context Context `json:"context"`
	Rows    []*Row  `json:"rows"`
}
