// Package lifecycle holds the appointment status transition table.
package lifecycle

import (
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

type Action string

const (
	ActionReschedule   Action = "reschedule"
	ActionCancel       Action = "cancel"
	ActionUpdateStatus Action = "update_status"
)

// rule is one cell of the table. An empty deny message means the action is allowed.
type rule struct {
	deny string
}

func allow() rule { return rule{} }
func deny(msg string) rule { return rule{deny: msg} }

const (
	msgAlreadyCanceled  = "appointment is already canceled"
	msgAlreadyCompleted = "cannot cancel an appointment that is already completed"
	msgStatusCanceled   = "cannot change the status of a canceled appointment"
	msgStatusFinalized  = "cannot change the status of an appointment that is already finalized"
	msgUseCancel        = "use the cancel operation to cancel an appointment"
)

var table = map[model.Status]map[Action]rule{
	model.StatusScheduled: {
		ActionReschedule:   allow(),
		ActionCancel:       allow(),
		ActionUpdateStatus: allow(),
	},
	model.StatusConfirmed: {
		ActionReschedule:   allow(),
		ActionCancel:       allow(),
		ActionUpdateStatus: allow(),
	},
	model.StatusCompleted: {
		ActionReschedule:   deny("cannot reschedule an appointment that is already completed"),
		ActionCancel:       deny(msgAlreadyCompleted),
		ActionUpdateStatus: deny(msgStatusFinalized),
	},
	model.StatusNoShow: {
		ActionReschedule:   deny("cannot reschedule an appointment marked as no-show"),
		ActionCancel:       allow(),
		ActionUpdateStatus: deny(msgStatusFinalized),
	},
	model.StatusCanceledByClinic: {
		ActionReschedule:   deny("cannot reschedule an appointment canceled by the clinic"),
		ActionCancel:       deny(msgAlreadyCanceled),
		ActionUpdateStatus: deny(msgStatusCanceled),
	},
	model.StatusCanceledByPatient: {
		ActionReschedule:   deny("cannot reschedule an appointment canceled by the patient"),
		ActionCancel:       deny(msgAlreadyCanceled),
		ActionUpdateStatus: deny(msgStatusCanceled),
	},
}

// cancelOnlyTargets can be reached through ActionCancel only.
var cancelOnlyTargets = map[model.Status]bool{
	model.StatusCanceledByClinic:  true,
	model.StatusCanceledByPatient: true,
}

func check(current model.Status, action Action) error {
	row, ok := table[current]
	if !ok {
		return apperr.BusinessRule("unknown appointment status %q", current)
	}
	r := row[action]
	if r.deny != "" {
		return apperr.BusinessRule("%s", r.deny).With("status", string(current))
	}
	return nil
}

// CanReschedule allows rescheduling from scheduled or confirmed only.
func CanReschedule(current model.Status) error {
	return check(current, ActionReschedule)
}

func CanCancel(current model.Status) error {
	return check(current, ActionCancel)
}

// CanUpdateStatus rejects finalized or canceled appointments and any canceled
// target. Any other move among scheduled, confirmed, completed and no_show is allowed.
func CanUpdateStatus(current, requested model.Status) error {
	if !requested.Valid() {
		return apperr.Invalid("unknown status %q", requested)
	}
	if err := check(current, ActionUpdateStatus); err != nil {
		return err
	}
	if cancelOnlyTargets[requested] {
		return apperr.BusinessRule(msgUseCancel).With("status", string(current))
	}
	return nil
}

// CancelTarget is the status a successful cancel moves to.
func CancelTarget(byClinic bool) model.Status {
	if byClinic {
		return model.StatusCanceledByClinic
	}
	return model.StatusCanceledByPatient
}

// RescheduleTarget is the status every successful reschedule resets to.
func RescheduleTarget() model.Status {
	return model.StatusScheduled
}
