// Package coach описывает диалог с ИИ-коучем: персоны Амаль и Ая,
// сообщения диалога и системную подсказку, собранную из профиля.
package coach

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Persona
// ═══════════════════════════════════════════════════════════════════════════

// Persona - голос коуча.
type Persona string

const (
	// PersonaAmal - спокойная наставница по административным вопросам. По умолчанию.
	PersonaAmal Persona = "amal"
	// PersonaAya - неформальная подруга-студентка.
	PersonaAya Persona = "aya"
)

// ParsePersona возвращает персону, пустая строка даёт Амаль.
func ParsePersona(s string) (Persona, error) {
	switch Persona(strings.ToLower(strings.TrimSpace(s))) {
	case "", PersonaAmal:
		return PersonaAmal, nil
	case PersonaAya:
		return PersonaAya, nil
	}
	return "", shared.NewDomainError("coach", "Persona", shared.ErrInvalidInput, "invalid_input", "unknown persona")
}

// DisplayName возвращает имя персоны.
func (p Persona) DisplayName() string {
	if p == PersonaAya {
		return "Aya"
	}
	return "Amal"
}

// ═══════════════════════════════════════════════════════════════════════════
// Messages
// ═══════════════════════════════════════════════════════════════════════════

// Role - автор сообщения.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Лимиты на входящий диалог.
const (
	MaxMessages      = 40
	MaxMessageLength = 4000
)

// Message - одно сообщение диалога в формате chat completions.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateConversation проверяет историю от клиента.
// Системные сообщения клиента запрещены: подсказку собирает сервер.
func ValidateConversation(msgs []Message) error {
	if len(msgs) == 0 {
		return invalid("messages are required")
	}
	if len(msgs) > MaxMessages {
		return invalid("conversation is too long")
	}
	for _, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return invalid("message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return invalid("message cannot be empty")
		}
		if utf8.RuneCountInString(m.Content) > MaxMessageLength {
			return invalid("message is too long")
		}
	}
	if msgs[len(msgs)-1].Role != RoleUser {
		return invalid("last message must come from the user")
	}
	return nil
}

func invalid(msg string) error {
	return shared.NewDomainError("coach", "Validate", shared.ErrInvalidInput, "invalid_input", msg)
}

// ═══════════════════════════════════════════════════════════════════════════
// System prompt
// ═══════════════════════════════════════════════════════════════════════════

var personaVoice = map[Persona]string{
	PersonaAmal: "Tu es Amal, une conseillère bienveillante et précise qui accompagne les étudiants dans leurs démarches administratives en France.",
	PersonaAya:  "Tu es Aya, une étudiante qui vit en France depuis quelques années et qui aide les nouveaux arrivants avec un ton chaleureux et direct.",
}

// SystemPrompt собирает системную подсказку из персоны и профиля.
// Пустые поля профиля пропускаются.
func SystemPrompt(persona Persona, p *profile.Profile) string {
	var b strings.Builder
	b.WriteString(personaVoice[persona])
	b.WriteString(" Réponds en français simple, avec des étapes concrètes (CAF, CROUS, préfecture, titre de séjour, sécurité sociale, banque, logement).")
	b.WriteString(" Si tu n'es pas sûre, indique l'organisme officiel à contacter.")

	if p == nil {
		return b.String()
	}

	var facts []string
	if p.Nationality != "" {
		facts = append(facts, fmt.Sprintf("nationalité: %s", p.Nationality))
	}
	if p.CurrentCity != "" {
		facts = append(facts, fmt.Sprintf("ville actuelle: %s", p.CurrentCity))
	}
	if p.TargetCity != "" {
		facts = append(facts, fmt.Sprintf("ville d'études: %s", p.TargetCity))
	}
	if p.University != "" {
		facts = append(facts, fmt.Sprintf("université: %s", p.University))
	}
	if len(p.Objectives) > 0 {
		facts = append(facts, fmt.Sprintf("objectifs: %s", strings.Join(p.Objectives, ", ")))
	}
	switch {
	case p.Nationality.IsFrench():
	case p.InFrance == nil:
	case *p.InFrance:
		facts = append(facts, "déjà en France")
	default:
		facts = append(facts, "pas encore arrivé en France")
	}
	facts = append(facts, fmt.Sprintf("progression d'intégration: %d%%", p.IntegrationProgress))

	b.WriteString("\n\nProfil de l'étudiant: ")
	b.WriteString(strings.Join(facts, "; "))
	b.WriteString(".")
	return b.String()
}

// BuildRequest добавляет системную подсказку перед историей.
func BuildRequest(persona Persona, p *profile.Profile, history []Message) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: SystemPrompt(persona, p)})
	return append(out, history...)
}

// ═══════════════════════════════════════════════════════════════════════════
// Gateway
// ═══════════════════════════════════════════════════════════════════════════

// Stream - поток ответа модели.
// Next возвращает JSON очередного чанка, io.EOF после [DONE]
// и sse.ErrTruncated, если поток оборвался без [DONE].
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// Gateway - шлюз языковой модели.
type Gateway interface {
	// Stream открывает потоковое завершение. Ошибка до первого байта
	// означает, что поток не начался.
	Stream(ctx context.Context, msgs []Message) (Stream, error)
}
