package lifecycle

import (
	"context"
	"fmt"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// effects is the full write set of one transition.  apply writes the
// request first so that dependent rows never reference a missing parent.
type effects struct {
	insert        *model.Request
	update        *model.Request
	expected      model.RequestStatus
	payment       *model.Payment
	notifications []model.Notification
	audits        []model.AuditLog
}

func (e effects) apply(ctx context.Context, tx Tx) error {
	if e.insert != nil {
		if err := tx.InsertRequest(ctx, *e.insert); err != nil {
			return err
		}
	}
	if e.update != nil {
		if err := tx.UpdateRequestReview(ctx, *e.update, e.expected); err != nil {
			return err
		}
	}
	if e.payment != nil {
		if err := tx.InsertPayment(ctx, *e.payment); err != nil {
			return err
		}
	}
	for _, n := range e.notifications {
		if err := tx.InsertNotification(ctx, n); err != nil {
			return err
		}
	}
	for _, a := range e.audits {
		if err := tx.InsertAuditLog(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// planCreate derives the writes for a new request: the request, a
// pending payment when the service charges a fee, and a confirmation to
// the requester.
func planCreate(req model.Request, svc model.Service) effects {
	e := effects{insert: &req}
	if svc.HasFee() {
		p := model.NewPendingPayment(req.ID, svc.FeeCents, req.SubmittedAt)
		e.payment = &p
	}
	e.notifications = []model.Notification{model.NewNotification(
		req.UserID,
		"Request Submitted",
		fmt.Sprintf("Your request for %s has been submitted successfully.", svc.Name),
		model.NotificationSuccess,
		req.SubmittedAt,
	)}
	return e
}

// planTransition derives the writes for a status change of an existing
// request: the update itself, a notification to the owner and an audit
// entry attributed to the actor.
func planTransition(prev, next model.Request, actor *model.User, action string) effects {
	title, message, typ := ownerNotice(next)
	meta := map[string]any{
		"previous_status":  string(prev.Status),
		"new_status":       string(next.Status),
		"reference_number": next.ReferenceNumber,
	}
	if action == model.ActionRequestDecided {
		meta["decision"] = string(next.Status)
		meta["remarks"] = deref(next.Remarks)
	}
	return effects{
		update:   &next,
		expected: prev.Status,
		notifications: []model.Notification{
			model.NewNotification(next.UserID, title, message, typ, next.UpdatedAt),
		},
		audits: []model.AuditLog{
			model.NewAuditLog(actor.ID, action, "request", next.ID, meta, next.UpdatedAt),
		},
	}
}

func ownerNotice(r model.Request) (title, message string, typ model.NotificationType) {
	switch r.Status {
	case model.StatusUnderReview:
		return "Request Under Review",
			fmt.Sprintf("Your request %s is now under review.", r.ReferenceNumber),
			model.NotificationInfo
	case model.StatusApproved:
		return "Request Approved",
			withRemarks(fmt.Sprintf("Your request %s has been approved.", r.ReferenceNumber), r.Remarks),
			model.NotificationSuccess
	case model.StatusRejected:
		return "Request Rejected",
			withRemarks(fmt.Sprintf("Your request %s has been rejected.", r.ReferenceNumber), r.Remarks),
			model.NotificationWarning
	default:
		return "Request Completed",
			fmt.Sprintf("Your request %s has been completed.", r.ReferenceNumber),
			model.NotificationSuccess
	}
}

func withRemarks(msg string, remarks *string) string {
	if remarks == nil || *remarks == "" {
		return msg
	}
	return msg + " Remarks: " + *remarks
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
