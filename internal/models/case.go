package models

import "time"

// Case priorities.
const (
	PriorityLow      = "baja"
	PriorityMedium   = "media"
	PriorityHigh     = "alta"
	PriorityCritical = "critica"
)

// Case statuses.
const (
	StatusNew        = "Nuevo"
	StatusInProgress = "En Progreso"
	StatusPending    = "Pendiente"
	StatusResolved   = "Resuelto"
)

// DefaultAssignee is recorded when a case is created without an assignee.
const DefaultAssignee = "Sistema"

// DateLayout is the day precision used for creation and update dates.
const DateLayout = "2006-01-02"

// TimestampLayout is used for history entries.
const TimestampLayout = "2006-01-02 15:04:05"

// Option is a catalog entry with its display text and badge color.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// Priorities lists the case priorities from lowest to highest.
var Priorities = []Option{
	{Value: PriorityLow, Text: "Baja", Color: "secondary"},
	{Value: PriorityMedium, Text: "Media", Color: "info"},
	{Value: PriorityHigh, Text: "Alta", Color: "warning"},
	{Value: PriorityCritical, Text: "Crítica", Color: "danger"},
}

// Statuses lists the case statuses.
var Statuses = []Option{
	{Value: StatusNew, Text: "Nuevo", Color: "primary"},
	{Value: StatusInProgress, Text: "En Progreso", Color: "success"},
	{Value: StatusPending, Text: "Pendiente", Color: "warning"},
	{Value: StatusResolved, Text: "Resuelto", Color: "success"},
}

// IDTypes lists the identification document types accepted by the forms.
var IDTypes = []Option{
	{Value: "CC", Text: "Cédula de Ciudadanía"},
	{Value: "CE", Text: "Cédula de Extranjería"},
	{Value: "PA", Text: "Pasaporte"},
	{Value: "TI", Text: "Tarjeta de Identidad"},
	{Value: "PT", Text: "Permiso Temporal"},
}

// OptionValues returns the values of a catalog.
func OptionValues(options []Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Value
	}
	return out
}

// OptionText returns the display text for value, or value itself when unknown.
func OptionText(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Text
		}
	}
	return value
}

// HistoryEntry is one audit line of a case.
type HistoryEntry struct {
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Comment   string `json:"comment"`
}

// Case is a "novedad": an HR/payroll case opened for an employee of a client company.
type Case struct {
	ID                  int64            `json:"id"`
	Client              string           `json:"client"`
	Subject             string           `json:"subject"`
	Priority            string           `json:"priority"`
	PriorityText        string           `json:"priorityText,omitempty"`
	Status              string           `json:"status"`
	IDType              string           `json:"idType,omitempty"`
	IDNumber            string           `json:"idNumber,omitempty"`
	FirstName           string           `json:"firstName,omitempty"`
	LastName            string           `json:"lastName,omitempty"`
	Nationality         string           `json:"nationality,omitempty"`
	Gender              string           `json:"gender,omitempty"`
	BirthDate           string           `json:"birthDate,omitempty"`
	Phone               string           `json:"phone,omitempty"`
	Department          string           `json:"department,omitempty"`
	City                string           `json:"city,omitempty"`
	Address             string           `json:"address,omitempty"`
	Neighborhood        string           `json:"neighborhood,omitempty"`
	Email               string           `json:"email,omitempty"`
	Beneficiaries       []map[string]any `json:"beneficiaries"`
	EPS                 string           `json:"eps,omitempty"`
	ARL                 string           `json:"arl,omitempty"`
	ARLClass            string           `json:"arlClass,omitempty"`
	CCF                 string           `json:"ccf,omitempty"`
	PensionFund         string           `json:"pensionFund,omitempty"`
	IBC                 *float64         `json:"ibc,omitempty"`
	Description         string           `json:"description"`
	Radicado            string           `json:"radicado,omitempty"`
	SolutionDescription string           `json:"solutionDescription"`
	CreationDate        string           `json:"creationDate"`
	UpdateDate          string           `json:"updateDate"`
	AssignedTo          string           `json:"assignedTo"`
	History             []HistoryEntry   `json:"history"`
}

// Employee returns the employee name shown in the case list.
func (c *Case) Employee() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return "N/A"
	}
	return name
}

// CaseInput is the payload for creating a case.
type CaseInput struct {
	Client        string           `json:"client" validate:"required"`
	Subject       string           `json:"subject" validate:"required"`
	Priority      string           `json:"priority" validate:"required,priority"`
	PriorityText  string           `json:"priorityText,omitempty"`
	Status        string           `json:"status" validate:"required,status"`
	IDType        string           `json:"idType,omitempty" validate:"omitempty,idtype"`
	IDNumber      string           `json:"idNumber,omitempty"`
	FirstName     string           `json:"firstName,omitempty"`
	LastName      string           `json:"lastName,omitempty"`
	Nationality   string           `json:"nationality,omitempty"`
	Gender        string           `json:"gender,omitempty"`
	BirthDate     string           `json:"birthDate,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	Department    string           `json:"department,omitempty"`
	City          string           `json:"city,omitempty"`
	Address       string           `json:"address,omitempty"`
	Neighborhood  string           `json:"neighborhood,omitempty"`
	Email         string           `json:"email,omitempty" validate:"omitempty,email"`
	Beneficiaries []map[string]any `json:"beneficiaries,omitempty"`
	EPS           string           `json:"eps,omitempty"`
	ARL           string           `json:"arl,omitempty"`
	ARLClass      string           `json:"arlClass,omitempty"`
	CCF           string           `json:"ccf,omitempty"`
	PensionFund   string           `json:"pensionFund,omitempty"`
	IBC           *float64         `json:"ibc,omitempty"`
	Description   string           `json:"description" validate:"required,min=10,max=5000"`
	Radicado      string           `json:"radicado,omitempty"`
	AssignedTo    string           `json:"assignedTo,omitempty"`
}

// MissingRequired returns the JSON names of required fields left empty, in form order.
func (in *CaseInput) MissingRequired() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"client", in.Client},
		{"subject", in.Subject},
		{"priority", in.Priority},
		{"status", in.Status},
		{"description", in.Description},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// NewCase builds a case from input, stamping dates, the default assignee, and
// the initial history entry.
func NewCase(in *CaseInput, user string, now time.Time) *Case {
	priorityText := in.PriorityText
	if priorityText == "" {
		priorityText = in.Priority
	}
	assigned := in.AssignedTo
	if assigned == "" {
		assigned = DefaultAssignee
	}
	beneficiaries := in.Beneficiaries
	if beneficiaries == nil {
		beneficiaries = []map[string]any{}
	}
	day := now.Format(DateLayout)
	return &Case{
		Client:        in.Client,
		Subject:       in.Subject,
		Priority:      in.Priority,
		PriorityText:  priorityText,
		Status:        in.Status,
		IDType:        in.IDType,
		IDNumber:      in.IDNumber,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Nationality:   in.Nationality,
		Gender:        in.Gender,
		BirthDate:     in.BirthDate,
		Phone:         in.Phone,
		Department:    in.Department,
		City:          in.City,
		Address:       in.Address,
		Neighborhood:  in.Neighborhood,
		Email:         in.Email,
		Beneficiaries: beneficiaries,
		EPS:           in.EPS,
		ARL:           in.ARL,
		ARLClass:      in.ARLClass,
		CCF:           in.CCF,
		PensionFund:   in.PensionFund,
		IBC:           in.IBC,
		Description:   in.Description,
		Radicado:      in.Radicado,
		CreationDate:  day,
		UpdateDate:    day,
		AssignedTo:    assigned,
		History: []HistoryEntry{{
			User:      user,
			Timestamp: now.Format(TimestampLayout),
			Action:    "Created the case.",
			Comment:   "Initial status: " + in.Status + ", priority: " + priorityText + ".",
		}},
	}
}
