package integration

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// Каталог задач и документов фиксирован и задаётся в коде.
// Пользователь не может его редактировать, в БД хранится только оверлей.
// ══════════════════════════════════════════════════════════════════════════════

// PhaseID - идентификатор фазы чек-листа.
type PhaseID string

const (
	PhasePreArrival   PhaseID = "pre_arrival"
	PhaseInstallation PhaseID = "installation"
	PhaseLegal        PhaseID = "legal"
	PhaseLocalLife    PhaseID = "local_life"
)

// IsValid проверяет, что фаза существует в каталоге.
func (p PhaseID) IsValid() bool {
	_, ok := FindPhase(p)
	return ok
}

// Item - задача в фазе чек-листа.
type Item struct {
	ID    string
	Title string
	Tip   string
	Link  string

	// HasCoachShortcut - в интерфейсе рядом с задачей есть кнопка "спросить коуча".
	HasCoachShortcut bool
}

// Phase - упорядоченная группа задач.
type Phase struct {
	ID    PhaseID
	Title string
	Items []Item
}

// Document - обязательный документ, который студент отмечает как "есть".
type Document struct {
	ID    string
	Title string
}

var phases = []Phase{
	{
		ID:    PhasePreArrival,
		Title: "Avant le départ",
		Items: []Item{
			{ID: "campus_france", Title: "Finaliser la procédure Études en France", Link: "https://www.campusfrance.org", HasCoachShortcut: true},
			{ID: "visa", Title: "Obtenir le visa VLS-TS", Tip: "Prenez rendez-vous au consulat au moins 3 mois avant le départ.", HasCoachShortcut: true},
			{ID: "housing_guarantor", Title: "Demander la garantie Visale", Link: "https://www.visale.fr"},
			{ID: "travel_insurance", Title: "Souscrire une assurance voyage"},
			{ID: "documents_translation", Title: "Faire traduire les actes officiels", Tip: "Seul un traducteur assermenté est accepté par l'administration."},
		},
	},
	{
		ID:    PhaseInstallation,
		Title: "Installation",
		Items: []Item{
			{ID: "validate_visa", Title: "Valider le visa sur l'ANEF", Link: "https://administration-etrangers-en-france.interieur.gouv.fr", HasCoachShortcut: true},
			{ID: "bank_account", Title: "Ouvrir un compte bancaire", HasCoachShortcut: true},
			{ID: "phone_plan", Title: "Prendre un forfait mobile"},
			{ID: "housing", Title: "Trouver un logement (CROUS ou privé)", Link: "https://trouverunlogement.lescrous.fr"},
			{ID: "caf", Title: "Demander l'aide au logement CAF", Link: "https://www.caf.fr", HasCoachShortcut: true},
		},
	},
	{
		ID:    PhaseLegal,
		Title: "Démarches légales",
		Items: []Item{
			{ID: "social_security", Title: "S'inscrire à la Sécurité sociale étudiante", Link: "https://etudiant-etranger.ameli.fr", HasCoachShortcut: true},
			{ID: "carte_vitale", Title: "Recevoir la carte Vitale"},
			{ID: "mutuelle", Title: "Choisir une mutuelle"},
			{ID: "residence_permit", Title: "Préparer le renouvellement du titre de séjour", Tip: "La demande se fait en ligne deux mois avant l'expiration.", HasCoachShortcut: true},
		},
	},
	{
		ID:    PhaseLocalLife,
		Title: "Vie locale",
		Items: []Item{
			{ID: "transport_pass", Title: "Prendre un abonnement de transport"},
			{ID: "doctor", Title: "Déclarer un médecin traitant", HasCoachShortcut: true},
			{ID: "student_life", Title: "Rejoindre une association étudiante"},
			{ID: "student_job", Title: "Trouver un job étudiant", Tip: "Le visa étudiant autorise 964 heures de travail par an."},
		},
	},
}

var documents = []Document{
	{ID: "passport", Title: "Passeport"},
	{ID: "visa", Title: "Visa long séjour"},
	{ID: "birth_certificate", Title: "Acte de naissance traduit"},
	{ID: "enrollment_certificate", Title: "Attestation d'inscription"},
	{ID: "proof_of_address", Title: "Justificatif de domicile"},
	{ID: "bank_details", Title: "RIB"},
	{ID: "id_photos", Title: "Photos d'identité"},
	{ID: "housing_insurance", Title: "Attestation d'assurance habitation"},
}

// Phases возвращает копию каталога фаз в каноническом порядке.
func Phases() []Phase {
	out := make([]Phase, len(phases))
	for i, p := range phases {
		items := make([]Item, len(p.Items))
		copy(items, p.Items)
		out[i] = Phase{ID: p.ID, Title: p.Title, Items: items}
	}
	return out
}

// Documents возвращает копию каталога документов.
func Documents() []Document {
	out := make([]Document, len(documents))
	copy(out, documents)
	return out
}

// FindPhase ищет фазу по ID.
func FindPhase(id PhaseID) (Phase, bool) {
	for _, p := range phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// FindItem ищет задачу в фазе.
func FindItem(phase PhaseID, itemID string) (Item, bool) {
	p, ok := FindPhase(phase)
	if !ok {
		return Item{}, false
	}
	for _, it := range p.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}

// FindDocument ищет документ по ID.
func FindDocument(id string) (Document, bool) {
	for _, d := range documents {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}
