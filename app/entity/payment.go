package entity

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Proof holds whatever the submitter attached. Any combination may be present.
type Proof struct {
	Text        *string
	PhotoRef    *string
	DocumentRef *string
}

func (p Proof) Empty() bool {
	return p.Text == nil && p.PhotoRef == nil && p.DocumentRef == nil
}

type Payment struct {
	ID uint64

	SubmitterID     int64
	SubmitterHandle *string
	PlanCode        string
	Proof           Proof
	Locale          string

	Status     string
	DecidedAt  *time.Time
	ReviewerID *int64

	Credential          *string
	ReviewerNotifiedAt  *time.Time
	SubmitterNotifiedAt *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func IsTerminalStatus(status string) bool {
	return status == StatusConfirmed || status == StatusRejected
}

func IsValidStatus(status string) bool {
	return status == StatusPending || IsTerminalStatus(status)
}

// Clone returns a deep copy so callers never share pointers with a stored record.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.SubmitterHandle = cloneString(p.SubmitterHandle)
	c.Proof = Proof{
		Text:        cloneString(p.Proof.Text),
		PhotoRef:    cloneString(p.Proof.PhotoRef),
		DocumentRef: cloneString(p.Proof.DocumentRef),
	}
	c.DecidedAt = cloneTime(p.DecidedAt)
	c.Credential = cloneString(p.Credential)
	c.ReviewerNotifiedAt = cloneTime(p.ReviewerNotifiedAt)
	c.SubmitterNotifiedAt = cloneTime(p.SubmitterNotifiedAt)
	if p.ReviewerID != nil {
		id := *p.ReviewerID
		c.ReviewerID = &id
	}
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
