package verification

import (
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// State - шаг процесса верификации.
type State string

const (
	StateIdle      State = "idle"
	StateInput     State = "input"
	StateSending   State = "sending"
	StateSent      State = "sent"
	StateConfirmed State = "confirmed"
	StateError     State = "error"
)

// transitions - разрешённые переходы.
var transitions = map[State][]State{
	StateIdle:    {StateInput},
	StateInput:   {StateSending, StateError},
	StateSending: {StateSent, StateError},
	StateSent:    {StateConfirmed},
	StateError:   {StateInput},
}

// CanTransition проверяет, разрешён ли переход.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Workflow - конечный автомат верификации.
// Один экземпляр живёт в рамках одного запроса.
type Workflow struct {
	State State
	Email string
	Err   error
}

// NewWorkflow создаёт автомат в состоянии idle.
func NewWorkflow() *Workflow {
	return &Workflow{State: StateIdle}
}

func (w *Workflow) move(to State) error {
	if !w.State.CanTransition(to) {
		return shared.ErrInvalidWorkflowStep
	}
	w.State = to
	return nil
}

// Begin открывает ввод адреса.
func (w *Workflow) Begin() error {
	return w.move(StateInput)
}

// Submit проверяет адрес и переводит в sending.
// Неакадемический адрес переводит автомат в error до любой сетевой работы.
func (w *Workflow) Submit(email string) error {
	if w.State != StateInput {
		return shared.ErrInvalidWorkflowStep
	}
	if err := ValidateEmail(email); err != nil {
		w.State = StateError
		w.Err = err
		return err
	}
	w.Email = NormalizeEmail(email)
	return w.move(StateSending)
}

// Sent фиксирует успешную отправку письма.
func (w *Workflow) Sent() error {
	return w.move(StateSent)
}

// Fail переводит автомат в error с причиной.
func (w *Workflow) Fail(err error) error {
	if e := w.move(StateError); e != nil {
		return e
	}
	w.Err = err
	return nil
}

// Confirm фиксирует переход по ссылке.
func (w *Workflow) Confirm() error {
	return w.move(StateConfirmed)
}

// Retry возвращает из error к вводу адреса.
func (w *Workflow) Retry() error {
	if w.State != StateError {
		return shared.ErrInvalidWorkflowStep
	}
	if err := w.move(StateInput); err != nil {
		return err
	}
	w.Err = nil
	return nil
}
