package process

// Process is an import process ("processo de importação") as exposed by the API.
// Rows live in NocoDB with snake_case columns; see repository.NocoDBRepo.
type Process struct {
	ID                  string   `json:"id"`
	ProcessNumber       string   `json:"processNumber"`
	Company             string   `json:"company,omitempty"`
	Supplier            string   `json:"supplier,omitempty"`
	StartDate           string   `json:"startDate,omitempty"`
	ExpectedArrivalDate string   `json:"expectedArrivalDate,omitempty"`
	Status              string   `json:"status"`
	Notes               string   `json:"notes,omitempty"`
	DocumentsPipeline   Pipeline `json:"documentsPipeline"`
	OwnerID             string   `json:"ownerId,omitempty"`
	CreatedAt           string   `json:"createdAt,omitempty"`
	UpdatedAt           string   `json:"updatedAt,omitempty"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	ProcessNumber       *string   `json:"processNumber,omitempty" binding:"omitempty,min=1"`
	Company             *string   `json:"company,omitempty"`
	Supplier            *string   `json:"supplier,omitempty"`
	StartDate           *string   `json:"startDate,omitempty" binding:"omitempty,isodate"`
	ExpectedArrivalDate *string   `json:"expectedArrivalDate,omitempty" binding:"omitempty,isodate"`
	Status              *string   `json:"status,omitempty" binding:"omitempty,processstatus"`
	Notes               *string   `json:"notes,omitempty"`
	DocumentsPipeline   *Pipeline `json:"documentsPipeline,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ProcessNumber == nil && p.Company == nil && p.Supplier == nil && p.StartDate == nil &&
		p.ExpectedArrivalDate == nil && p.Status == nil && p.Notes == nil && p.DocumentsPipeline == nil
}

// Apply copies the set fields of patch onto p.
func (p *Process) Apply(patch Patch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.ProcessNumber, patch.ProcessNumber)
	set(&p.Company, patch.Company)
	set(&p.Supplier, patch.Supplier)
	set(&p.StartDate, patch.StartDate)
	set(&p.ExpectedArrivalDate, patch.ExpectedArrivalDate)
	set(&p.Status, patch.Status)
	set(&p.Notes, patch.Notes)
	if patch.DocumentsPipeline != nil {
		p.DocumentsPipeline = *patch.DocumentsPipeline
	}
}

// Process statuses.
const (
	StatusOpen             = "open"
	StatusInTransit        = "in_transit"
	StatusCustomsClearance = "customs_clearance"
	StatusCompleted        = "completed"
	StatusCancelled        = "cancelled"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInTransit, StatusCustomsClearance, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Filter selects a page of processes.
type Filter struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Normalize clamps paging values to sane defaults.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the number of rows skipped before the page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
