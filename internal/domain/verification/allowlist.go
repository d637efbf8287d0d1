package verification

import (
	"net/mail"
	"strings"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// namedSchools - домены школ и университетов, которые не подходят под шаблоны.
// Совпадение по точному домену или по поддомену.
var namedSchools = []string{
	"sciencespo.fr",
	"polytechnique.edu",
	"polytechnique.fr",
	"ens.fr",
	"ens-lyon.fr",
	"ens-paris-saclay.fr",
	"psl.eu",
	"hec.edu",
	"hec.fr",
	"essec.edu",
	"escp.eu",
	"edhec.com",
	"em-lyon.com",
	"skema.edu",
	"neoma-bs.com",
	"kedgebs.com",
	"audencia.com",
	"tbs-education.org",
	"grenoble-em.com",
	"centralesupelec.fr",
	"ec-lyon.fr",
	"ec-nantes.fr",
	"insa-lyon.fr",
	"insa-toulouse.fr",
	"insa-rennes.fr",
	"minesparis.psl.eu",
	"mines-paristech.fr",
	"imt-atlantique.fr",
	"telecom-paris.fr",
	"enpc.fr",
	"ensam.eu",
	"utc.fr",
	"utt.fr",
	"grenoble-inp.fr",
	"inalco.fr",
	"sorbonne-nouvelle.fr",
	"epita.fr",
	"epitech.eu",
	"isep.fr",
	"efrei.net",
}

// NormalizeEmail приводит адрес к нижнему регистру без пробелов.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DomainAllowed проверяет академический домен по фиксированному списку шаблонов.
// Проверка выполняется до любой работы с сетью и БД.
func DomainAllowed(email string) bool {
	domain, ok := emailDomain(email)
	if !ok {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	tld := labels[len(labels)-1]

	// .edu
	if tld == "edu" {
		return true
	}
	// .ac.* (ox.ac.uk, um5.ac.ma)
	if len(labels) >= 3 && labels[len(labels)-2] == "ac" {
		return true
	}

	if tld == "fr" {
		for _, l := range labels[:len(labels)-1] {
			switch {
			case strings.HasPrefix(l, "univ-"),
				strings.HasPrefix(l, "u-"),
				strings.HasPrefix(l, "universite"),
				strings.HasSuffix(l, "-universite"),
				strings.HasPrefix(l, "iut-"):
				return true
			}
		}
	}

	for _, school := range namedSchools {
		if domain == school || strings.HasSuffix(domain, "."+school) {
			return true
		}
	}
	return false
}

// ValidateEmail возвращает доменную ошибку для пустого
// или неакадемического адреса.
func ValidateEmail(email string) error {
	if NormalizeEmail(email) == "" {
		return shared.ErrEmptyEmail
	}
	if !DomainAllowed(email) {
		return shared.ErrInvalidEmailDomain
	}
	return nil
}

func emailDomain(email string) (string, bool) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	return email[at+1:], true
}
