package model

// Notification is the user-facing alert raised when a watched run completes.
type Notification struct {
	Title string
	Body  string
}

// CompletionNotification returns the fixed message pair for a completed run.
func CompletionNotification(success bool) Notification {
	if success {
		return Notification{
			Title: "Success",
			Body:  "The workflow has been successfully built",
		}
	}
	return Notification{
		Title: "Failure",
		Body:  "Something went wrong :/",
	}
}
