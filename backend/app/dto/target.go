package dto

// Target type and version uploads arrive as multipart forms with these
// field names; the binary is under FormFile.
const (
	FormName    = "name"
	FormTarget  = "target"
	FormVersion = "version"
	FormFile    = "file"
)

type TargetListResponse struct {
	Targets []string `json:"targets"`
}

type VersionListResponse struct {
	Target   string   `json:"target"`
	Versions []string `json:"versions"`
	Cached   bool     `json:"cached"`
}
