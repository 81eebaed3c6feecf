package models

import (
	"reflect"
	"strings"
	"time"
)

// CasePatch carries the fields a case update may change. Nil fields are left
// untouched; NewComment appends a history comment.
type CasePatch struct {
	Client              *string          `json:"client,omitempty"`
	Subject             *string          `json:"subject,omitempty"`
	Priority            *string          `json:"priority,omitempty" validate:"omitempty,priority"`
	PriorityText        *string          `json:"priorityText,omitempty"`
	Status              *string          `json:"status,omitempty" validate:"omitempty,status"`
	IDType              *string          `json:"idType,omitempty" validate:"omitempty,idtype"`
	IDNumber            *string          `json:"idNumber,omitempty"`
	FirstName           *string          `json:"firstName,omitempty"`
	LastName            *string          `json:"lastName,omitempty"`
	Nationality         *string          `json:"nationality,omitempty"`
	Gender              *string          `json:"gender,omitempty"`
	BirthDate           *string          `json:"birthDate,omitempty"`
	Phone               *string          `json:"phone,omitempty"`
	Department          *string          `json:"department,omitempty"`
	City                *string          `json:"city,omitempty"`
	Address             *string          `json:"address,omitempty"`
	Neighborhood        *string          `json:"neighborhood,omitempty"`
	Email               *string          `json:"email,omitempty" validate:"omitempty,email"`
	Beneficiaries       []map[string]any `json:"beneficiaries,omitempty"`
	EPS                 *string          `json:"eps,omitempty"`
	ARL                 *string          `json:"arl,omitempty"`
	ARLClass            *string          `json:"arlClass,omitempty"`
	CCF                 *string          `json:"ccf,omitempty"`
	PensionFund         *string          `json:"pensionFund,omitempty"`
	IBC                 *float64         `json:"ibc,omitempty"`
	Description         *string          `json:"description,omitempty" validate:"omitempty,min=10,max=5000"`
	Radicado            *string          `json:"radicado,omitempty"`
	SolutionDescription *string          `json:"solutionDescription,omitempty"`
	AssignedTo          *string          `json:"assignedTo,omitempty"`
	NewComment          string           `json:"newComment,omitempty"`
}

// StringPtr returns a pointer to s, for building patches.
func StringPtr(s string) *string { return &s }

// ClosePatch marks a case as resolved.
func ClosePatch() *CasePatch {
	return &CasePatch{
		Status:       StringPtr(StatusResolved),
		Priority:     StringPtr(PriorityLow),
		PriorityText: StringPtr(StatusResolved),
	}
}

// Apply merges the patch into c. When anything changed or a comment was given it
// appends a history entry, bumps the update date, and returns true.
func (p *CasePatch) Apply(c *Case, user string, now time.Time) bool {
	var actions []string
	changed := false
	set := func(dst *string, v *string) bool {
		if v == nil || *dst == *v {
			return false
		}
		*dst = *v
		changed = true
		return true
	}

	set(&c.Client, p.Client)
	set(&c.Subject, p.Subject)
	set(&c.PriorityText, p.PriorityText)
	if set(&c.Priority, p.Priority) {
		text := *p.Priority
		if p.PriorityText != nil {
			text = *p.PriorityText
		}
		actions = append(actions, "Changed priority to '"+text+"'.")
	}
	if set(&c.Status, p.Status) {
		actions = append(actions, "Changed status to '"+*p.Status+"'.")
	}
	set(&c.IDType, p.IDType)
	set(&c.IDNumber, p.IDNumber)
	set(&c.FirstName, p.FirstName)
	set(&c.LastName, p.LastName)
	set(&c.Nationality, p.Nationality)
	set(&c.Gender, p.Gender)
	set(&c.BirthDate, p.BirthDate)
	set(&c.Phone, p.Phone)
	set(&c.Department, p.Department)
	set(&c.City, p.City)
	set(&c.Address, p.Address)
	set(&c.Neighborhood, p.Neighborhood)
	set(&c.Email, p.Email)
	set(&c.EPS, p.EPS)
	set(&c.ARL, p.ARL)
	set(&c.ARLClass, p.ARLClass)
	set(&c.CCF, p.CCF)
	set(&c.PensionFund, p.PensionFund)
	set(&c.Description, p.Description)
	set(&c.Radicado, p.Radicado)
	set(&c.SolutionDescription, p.SolutionDescription)
	set(&c.AssignedTo, p.AssignedTo)
	if p.Beneficiaries != nil && !reflect.DeepEqual(c.Beneficiaries, p.Beneficiaries) {
		c.Beneficiaries = p.Beneficiaries
		changed = true
	}
	if p.IBC != nil && (c.IBC == nil || *c.IBC != *p.IBC) {
		v := *p.IBC
		c.IBC = &v
		changed = true
	}

	comment := strings.TrimSpace(p.NewComment)
	if !changed && comment == "" {
		return false
	}
	action := "Updated the case."
	switch {
	case len(actions) > 0:
		action = strings.Join(actions, " ")
	case !changed:
		action = "Added a comment."
	}
	c.History = append(c.History, HistoryEntry{
		User:      user,
		Timestamp: now.Format(TimestampLayout),
		Action:    action,
		Comment:   comment,
	})
	c.UpdateDate = now.Format(DateLayout)
	return true
}
