package dto

// ExportKind selects the report rendered by the export endpoint.
type ExportKind string

const (
	ExportSections  ExportKind = "sections"
	ExportConflicts ExportKind = "conflicts"
)

// ExportRequest describes an export query.
type ExportRequest struct {
	Kind     ExportKind `form:"kind"`
	Format   string     `form:"format"`
	Semester *int       `form:"semester"`
}

// ExportResult carries a rendered report.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}
