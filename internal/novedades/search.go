package novedades

import (
	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/internal/lookup"
)

// Field ids of the new-case form.
const (
	IDTypeField   = "idType"
	IDNumberField = "idNumber"
)

// NewCaseMapping maps the reduced usuario attributes served to the new-case
// form onto its fields. Names are composed from both given names and both surnames.
func NewCaseMapping() []autocomplete.FieldMapping {
	return []autocomplete.FieldMapping{
		autocomplete.Compose("#firstName", "primerNombre", "segundoNombre"),
		autocomplete.Compose("#lastName", "primerApellido", "segundoApellido"),
		autocomplete.Map("telefonoCelular", "#phone"),
		autocomplete.Map("correoElectronico", "#email"),
		autocomplete.Map("nacionalidad", "#nationality"),
		autocomplete.Map("genero", "#gender"),
		autocomplete.Map("fechaNacimiento", "#birthDate"),
		autocomplete.Map("departamento", "#department"),
		autocomplete.Map("ciudad", "#city"),
		autocomplete.Map("direccion", "#address"),
		autocomplete.Map("barrio", "#neighborhood"),
		autocomplete.Map("epsNombre", "#eps"),
		autocomplete.Map("arlNombre", "#arl"),
		autocomplete.Map("ccfNombre", "#ccf"),
		autocomplete.Map("afpNombre", "#pensionFund"),
		autocomplete.Map("ibc", "#ibc"),
	}
}

// NewCaseSearch wires the autocomplete engine to the new-case form. The
// lookuper is normally lookup.NewCasesClient, which sends tipo/numero
// parameters to the cases endpoint.
func NewCaseSearch(form autocomplete.FieldAccessor, lookuper lookup.Lookuper, cfg autocomplete.Config, opts ...autocomplete.Option) *autocomplete.Engine {
	cfg.Identifier = autocomplete.Full{TypeField: IDTypeField, ValueField: IDNumberField}
	cfg.Endpoint = lookup.CasesEndpoint
	cfg.Mapping = NewCaseMapping()
	return autocomplete.New(cfg, form, lookuper, opts...)
}

// ResetCaseForm readies the new-case form for another entry each time it is
// opened: mapped fields are cleared and unlocked, feedback is hidden and both
// identifier fields are emptied.
func ResetCaseForm(engine *autocomplete.Engine) {
	engine.ResetFields()
	engine.SetFieldValue(IDTypeField, "")
	engine.SetFieldValue(IDNumberField, "")
}
