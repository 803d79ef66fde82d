package domain

// Notification is a message handed to a delivery channel. When Code is set
// the channels render the verification-code template, otherwise Text is sent
// as a free-text alert.
type Notification struct {
	Subject string
	Code    string
	Text    string
}

// IsCode reports whether the notification carries a verification code.
func (n *Notification) IsCode() bool {
	return n.Code != ""
}
