package request

// AuditoriumRequest describes a rectangular room. 702 rows is the last
// two-letter label (ZZ).
type AuditoriumRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	RowCount    int    `json:"row_count" validate:"required,min=1,max=702"`
	SeatsPerRow int    `json:"seats_per_row" validate:"required,min=1,max=999"`
}
