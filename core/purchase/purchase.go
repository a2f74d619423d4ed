package purchase

import "time"

type Status string

const (
	Pending   Status = "Pending"
	Completed Status = "Completed"
	Failed    Status = "Failed"
)

const (
	MethodCard   = "card"
	MethodPaypal = "paypal"
)

// Purchase binds a user to a course through a payment attempt. The
// provider id is the gateway's session/order id and is the only key
// fulfillment trusts when a notification comes back.
type Purchase struct {
	ID         string    `json:"id" db:"purchase_id"`
	UserID     string    `json:"userId" db:"user_id"`
	CourseID   string    `json:"courseId" db:"course_id"`
	Amount     int       `json:"amount" db:"amount"`
	Status     Status    `json:"status" db:"status"`
	Method     string    `json:"method" db:"method"`
	ProviderID string    `json:"-" db:"provider_id"`
	CourseName string    `json:"courseName" db:"course_name"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// CheckoutNew is the checkout request. The amount is advisory: the
// charged price always comes from the course record, and the final
// amount is overwritten by the verified gateway notification.
type CheckoutNew struct {
	CourseID   string `json:"courseId" validate:"required"`
	CourseName string `json:"courseName" validate:"required"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
}

// CheckoutSession is what the caller needs to continue the payment.
type CheckoutSession struct {
	URL string `json:"url"`
}
