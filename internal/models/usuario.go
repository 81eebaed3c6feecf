// Package models defines core data structures for usuarios, empresas, and novedades.
package models

import (
	"strconv"
	"time"

	"github.com/hyperjump/montero/pkg/utils"
)

// Usuario is an affiliated person as stored in the usuarios table.
// JSON names follow the column names the portal forms are mapped against.
type Usuario struct {
	ID                     int64     `json:"id,omitempty" db:"id"`
	TipoID                 string    `json:"tipoId" db:"tipoId"`
	NumeroID               string    `json:"numeroId" db:"numeroId"`
	PrimerNombre           string    `json:"primerNombre,omitempty" db:"primerNombre"`
	SegundoNombre          string    `json:"segundoNombre,omitempty" db:"segundoNombre"`
	PrimerApellido         string    `json:"primerApellido,omitempty" db:"primerApellido"`
	SegundoApellido        string    `json:"segundoApellido,omitempty" db:"segundoApellido"`
	SexoIdentificacion     string    `json:"sexoIdentificacion,omitempty" db:"sexoIdentificacion"`
	FechaNacimiento        string    `json:"fechaNacimiento,omitempty" db:"fechaNacimiento"`
	Nacionalidad           string    `json:"nacionalidad,omitempty" db:"nacionalidad"`
	DepartamentoNacimiento string    `json:"departamentoNacimiento,omitempty" db:"departamentoNacimiento"`
	MunicipioNacimiento    string    `json:"municipioNacimiento,omitempty" db:"municipioNacimiento"`
	CorreoElectronico      string    `json:"correoElectronico,omitempty" db:"correoElectronico"`
	TelefonoCelular        string    `json:"telefonoCelular,omitempty" db:"telefonoCelular"`
	Direccion              string    `json:"direccion,omitempty" db:"direccion"`
	ComunaBarrio           string    `json:"comunaBarrio,omitempty" db:"comunaBarrio"`
	IBC                    *float64  `json:"ibc,omitempty" db:"ibc"`
	ClaseRiesgoARL         string    `json:"claseRiesgoARL,omitempty" db:"claseRiesgoARL"`
	EmpresaNIT             string    `json:"empresa_nit,omitempty" db:"empresa_nit"`
	EPSNombre              string    `json:"epsNombre,omitempty" db:"epsNombre"`
	AFPNombre              string    `json:"afpNombre,omitempty" db:"afpNombre"`
	ARLNombre              string    `json:"arlNombre,omitempty" db:"arlNombre"`
	CCFNombre              string    `json:"ccfNombre,omitempty" db:"ccfNombre"`
	CreatedAt              time.Time `json:"-" db:"created_at"`
	UpdatedAt              time.Time `json:"-" db:"updated_at"`
}

// Key returns the directory key "tipo:numero" for the usuario.
func (u *Usuario) Key() string {
	return UsuarioKey(u.TipoID, u.NumeroID)
}

// UsuarioKey builds the directory key for an identifier pair.
func UsuarioKey(tipoID, numeroID string) string {
	return tipoID + ":" + numeroID
}

// FirstNames returns the given names joined by a space.
func (u *Usuario) FirstNames() string {
	return utils.JoinNonEmpty(" ", u.PrimerNombre, u.SegundoNombre)
}

// LastNames returns the surnames joined by a space.
func (u *Usuario) LastNames() string {
	return utils.JoinNonEmpty(" ", u.PrimerApellido, u.SegundoApellido)
}

// FullName returns given names followed by surnames.
func (u *Usuario) FullName() string {
	return utils.JoinNonEmpty(" ", u.FirstNames(), u.LastNames())
}

// Attributes returns the usuario as a lookup entity. Empty columns are left
// out so the lookup client sees them as null.
func (u *Usuario) Attributes() map[string]any {
	out := map[string]any{
		"tipoId":   u.TipoID,
		"numeroId": u.NumeroID,
	}
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	put("primerNombre", u.PrimerNombre)
	put("segundoNombre", u.SegundoNombre)
	put("primerApellido", u.PrimerApellido)
	put("segundoApellido", u.SegundoApellido)
	put("sexoIdentificacion", u.SexoIdentificacion)
	put("fechaNacimiento", u.FechaNacimiento)
	put("nacionalidad", u.Nacionalidad)
	put("departamentoNacimiento", u.DepartamentoNacimiento)
	put("municipioNacimiento", u.MunicipioNacimiento)
	put("correoElectronico", u.CorreoElectronico)
	put("telefonoCelular", u.TelefonoCelular)
	put("direccion", u.Direccion)
	put("comunaBarrio", u.ComunaBarrio)
	put("claseRiesgoARL", u.ClaseRiesgoARL)
	put("empresa_nit", u.EmpresaNIT)
	put("epsNombre", u.EPSNombre)
	put("afpNombre", u.AFPNombre)
	put("arlNombre", u.ARLNombre)
	put("ccfNombre", u.CCFNombre)
	if u.IBC != nil {
		out["ibc"] = *u.IBC
	}
	return out
}

// CaseAttributes returns the reduced attribute set served to the new-case form,
// with the birth place and gender columns renamed to the names that form uses.
func (u *Usuario) CaseAttributes() map[string]any {
	full := u.Attributes()
	out := make(map[string]any, len(full))
	for _, key := range []string{
		"primerNombre", "segundoNombre", "primerApellido", "segundoApellido",
		"telefonoCelular", "correoElectronico", "epsNombre", "arlNombre",
		"ccfNombre", "afpNombre", "ibc", "nacionalidad", "fechaNacimiento", "direccion",
	} {
		if v, ok := full[key]; ok {
			out[key] = v
		}
	}
	aliases := map[string]string{
		"sexoIdentificacion":     "genero",
		"departamentoNacimiento": "departamento",
		"municipioNacimiento":    "ciudad",
		"comunaBarrio":           "barrio",
	}
	for column, alias := range aliases {
		if v, ok := full[column]; ok {
			out[alias] = v
		}
	}
	return out
}

// SetColumn assigns a usuario column by its column name. It returns false for
// unknown columns or values that cannot be parsed.
func (u *Usuario) SetColumn(column, value string) bool {
	switch column {
	case "tipoId":
		u.TipoID = value
	case "numeroId":
		u.NumeroID = value
	case "primerNombre":
		u.PrimerNombre = value
	case "segundoNombre":
		u.SegundoNombre = value
	case "primerApellido":
		u.PrimerApellido = value
	case "segundoApellido":
		u.SegundoApellido = value
	case "sexoIdentificacion":
		u.SexoIdentificacion = value
	case "fechaNacimiento":
		u.FechaNacimiento = value
	case "nacionalidad":
		u.Nacionalidad = value
	case "departamentoNacimiento":
		u.DepartamentoNacimiento = value
	case "municipioNacimiento":
		u.MunicipioNacimiento = value
	case "correoElectronico":
		u.CorreoElectronico = value
	case "telefonoCelular":
		u.TelefonoCelular = value
	case "direccion":
		u.Direccion = value
	case "comunaBarrio":
		u.ComunaBarrio = value
	case "claseRiesgoARL":
		u.ClaseRiesgoARL = value
	case "empresa_nit":
		u.EmpresaNIT = value
	case "epsNombre":
		u.EPSNombre = value
	case "afpNombre":
		u.AFPNombre = value
	case "arlNombre":
		u.ARLNombre = value
	case "ccfNombre":
		u.CCFNombre = value
	case "ibc":
		if value == "" {
			u.IBC = nil
			return true
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		u.IBC = &f
	default:
		return false
	}
	return true
}
