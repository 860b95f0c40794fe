package core

import "strings"

// Unit is the measure of a purchased quantity.
type Unit string

const (
	UnitKg      Unit = "kg"
	UnitLiter   Unit = "liter"
	UnitPiece   Unit = "unit"
	UnitPackage Unit = "package"
	// UnitNone is the form placeholder meaning "no unit selected".
	UnitNone Unit = "N/A"
)

var unitAliases = map[string]Unit{
	"kg":      UnitKg,
	"liter":   UnitLiter,
	"litre":   UnitLiter,
	"litro":   UnitLiter,
	"l":       UnitLiter,
	"unit":    UnitPiece,
	"unidad":  UnitPiece,
	"package": UnitPackage,
	"paquete": UnitPackage,
	"n/a":     UnitNone,
}

// Units lists the selectable measures.
func Units() []Unit {
	return []Unit{UnitKg, UnitLiter, UnitPiece, UnitPackage}
}

// NormalizeUnit maps a raw label to a Unit. Blank input becomes UnitNone;
// unknown labels are kept verbatim so validation can reject them.
func NormalizeUnit(raw string) Unit {
	s := strings.TrimSpace(raw)
	if s == "" {
		return UnitNone
	}
	if u, ok := unitAliases[strings.ToLower(s)]; ok {
		return u
	}
	return Unit(s)
}

// Valid reports whether u is one of the selectable measures.
func (u Unit) Valid() bool {
	switch u {
	case UnitKg, UnitLiter, UnitPiece, UnitPackage:
		return true
	}
	return false
}
