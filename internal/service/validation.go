package service

import (
	"regexp"
	"strings"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
)

// platePattern covers both the legacy (ABC1234) and Mercosul (ABC1D23) formats.
var platePattern = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z0-9][0-9]{2}$`)

// NormalizeCNPJ strips punctuation and validates the 14-digit tax id.
func NormalizeCNPJ(raw string) (string, error) {
	cnpj := digitsIn(raw)
	if len(cnpj) != 14 {
		return "", &domain.ErrValidation{Field: "cnpj", Message: "CNPJ must have 14 digits"}
	}
	return cnpj, nil
}

// NormalizePlate upper-cases and trims a plate and checks its format.
func NormalizePlate(raw string) (string, error) {
	plate := strings.ToUpper(strings.TrimSpace(raw))
	plate = strings.ReplaceAll(plate, "-", "")
	if !platePattern.MatchString(plate) {
		return "", &domain.ErrValidation{Field: "license_plate", Message: "Invalid license plate format"}
	}
	return plate, nil
}

func validFuel(fuel string) bool {
	switch fuel {
	case domain.FuelGasoline, domain.FuelEthanol, domain.FuelDiesel:
		return true
	}
	return false
}

func validMethod(method string) bool {
	return method == domain.MethodEmail || method == domain.MethodWhatsApp
}

func digitsIn(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
