package models

// Empresa is a client company identified by its NIT.
type Empresa struct {
	NIT    string `json:"nit" db:"nit"`
	Nombre string `json:"nombre_empresa" db:"nombre_empresa"`
	Estado string `json:"estado,omitempty" db:"estado"`
	Ciudad string `json:"ciudad,omitempty" db:"ciudad"`
	Correo string `json:"correo,omitempty" db:"correo"`
}
